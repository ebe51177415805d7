package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/provado/provado/pkg/models"
)

func TestPaginate(t *testing.T) {
	gotSQL, gotVars := Paginate(models.EntityQuestions,
		[]Filter{SingleValue{Key: "year", Value: 2023}}, 20, 40, "")

	wantSQL := "BEGIN TRANSACTION; " +
		"SELECT count() AS total FROM questions WHERE year = $p_1 GROUP ALL; " +
		"SELECT * FROM questions WHERE year = $p_2 ORDER BY updatedAt DESC LIMIT 20 START 40; " +
		"COMMIT TRANSACTION;"
	assert.Equal(t, wantSQL, gotSQL)
	assert.Equal(t, map[string]any{"p_1": 2023, "p_2": 2023}, gotVars)
}

func TestPaginateUnfiltered(t *testing.T) {
	gotSQL, gotVars := Paginate(models.EntityBoards, nil, 10, 0, "")

	wantSQL := "BEGIN TRANSACTION; " +
		"SELECT count() AS total FROM boards GROUP ALL; " +
		"SELECT * FROM boards ORDER BY updatedAt DESC LIMIT 10 START 0; " +
		"COMMIT TRANSACTION;"
	assert.Equal(t, wantSQL, gotSQL)
	assert.Empty(t, gotVars)
}

func TestSearch(t *testing.T) {
	gotSQL, gotVars := Search(models.EntityExams, []string{"code", "name"}, "enem 2023", 10, 0)

	wantSQL := "SELECT *, search::score(1) AS score FROM exams" +
		" WHERE code @1@ $p_1 OR name @1@ $p_1" +
		" ORDER BY score DESC LIMIT 10 START 0;"
	assert.Equal(t, wantSQL, gotSQL)
	assert.Equal(t, map[string]any{"p_1": "enem 2023"}, gotVars)
}

func TestRandom(t *testing.T) {
	gotSQL, gotVars := Random(models.EntityQuestions,
		[]Filter{SingleValue{Key: "subjectId", Value: "math"}}, 15)

	wantSQL := "SELECT * FROM questions WHERE subjectId = $p_1 ORDER BY rand() DESC LIMIT 15;"
	assert.Equal(t, wantSQL, gotSQL)
	assert.Equal(t, map[string]any{"p_1": "math"}, gotVars)
}

func TestCountWhere(t *testing.T) {
	gotSQL, gotVars := CountWhere(models.EntityQuestions,
		[]Filter{SingleValue{Key: "boardId", Value: "enem"}})

	assert.Equal(t, "SELECT count() AS total FROM questions WHERE boardId = $p_1 GROUP ALL;", gotSQL)
	assert.Equal(t, map[string]any{"p_1": "enem"}, gotVars)
}

func TestSelectWhere(t *testing.T) {
	gotSQL, gotVars := SelectWhere(models.EntitySubjects, nil, 0)
	assert.Equal(t, "SELECT * FROM subjects;", gotSQL)
	assert.Empty(t, gotVars)

	gotSQL, gotVars = SelectWhere(models.EntityQuestions,
		[]Filter{SingleValue{Key: "examId", Value: "e1"}}, 5)
	assert.Equal(t, "SELECT * FROM questions WHERE examId = $p_1 LIMIT 5;", gotSQL)
	assert.Equal(t, map[string]any{"p_1": "e1"}, gotVars)
}

func TestSelectOneWhereUnbounded(t *testing.T) {
	gotSQL, gotVars := SelectOneWhere(models.EntityUsers,
		"email = $email", map[string]any{"email": "a@b.c"})

	// No LIMIT clause: the caller checks the row count itself.
	assert.Equal(t, "SELECT * FROM users WHERE email = $email;", gotSQL)
	assert.Equal(t, map[string]any{"email": "a@b.c"}, gotVars)
}

func TestRelate(t *testing.T) {
	gotSQL, gotVars := Relate("users:u1", "answered", "questions:q1", map[string]any{
		"at":                       int64(1700000000000),
		"answeredAlternativeIndex": 2,
	})

	wantSQL := "RELATE $p_1->answered->$p_2" +
		" SET answeredAlternativeIndex = $p_3, at = $p_4;"
	assert.Equal(t, wantSQL, gotSQL)
	assert.Equal(t, map[string]any{
		"p_1": "users:u1",
		"p_2": "questions:q1",
		"p_3": 2,
		"p_4": int64(1700000000000),
	}, gotVars)
}

func TestRelateNoFields(t *testing.T) {
	gotSQL, gotVars := Relate("users:u1", "answered", "questions:q1", nil)
	assert.Equal(t, "RELATE $p_1->answered->$p_2;", gotSQL)
	assert.Equal(t, map[string]any{"p_1": "users:u1", "p_2": "questions:q1"}, gotVars)
}

func TestSelectorBatch(t *testing.T) {
	gotSQL, gotVars := SelectorBatch(models.EntityQuestions, []Filter{
		SingleValue{Key: "year", Value: 2023},
		Selector{Key: "subjectId", Value: "math", Limit: 5, Fetch: []string{"subjectId"}},
		Selector{Key: "subjectId", Value: "physics", Limit: 3},
	})

	wantSQL := "BEGIN TRANSACTION; " +
		"SELECT * FROM questions WHERE year = $p_1 AND subjectId = $p_2 LIMIT 5 FETCH subjectId; " +
		"SELECT * FROM questions WHERE year = $p_3 AND subjectId = $p_4 LIMIT 3; " +
		"COMMIT TRANSACTION;"
	assert.Equal(t, wantSQL, gotSQL)
	assert.Equal(t, map[string]any{
		"p_1": 2023, "p_2": "math", "p_3": 2023, "p_4": "physics",
	}, gotVars)
}
