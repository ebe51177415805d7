package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surreal "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/provado/provado/pkg/models"
	"github.com/provado/provado/pkg/query"
)

// mockConn scripts the transport: queries are answered in order, and every
// call is recorded for assertion.
type mockConn struct {
	queryResults [][]Result
	queryErr     error
	queries      []string
	queryVars    []map[string]any

	createRows []models.Record
	createErr  error
	created    []any

	mergeRec models.Record
	mergeErr error

	selectRec models.Record
	selectErr error

	deleteErr error
	deleted   []surreal.RecordID
}

func (m *mockConn) Query(_ context.Context, sql string, vars map[string]any) ([]Result, error) {
	m.queries = append(m.queries, sql)
	m.queryVars = append(m.queryVars, vars)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if len(m.queryResults) == 0 {
		return nil, nil
	}
	res := m.queryResults[0]
	m.queryResults = m.queryResults[1:]
	return res, nil
}

func (m *mockConn) Create(_ context.Context, _ models.Entity, data any) ([]models.Record, error) {
	m.created = append(m.created, data)
	return m.createRows, m.createErr
}

func (m *mockConn) Merge(_ context.Context, _ surreal.RecordID, _ any) (models.Record, error) {
	return m.mergeRec, m.mergeErr
}

func (m *mockConn) Select(_ context.Context, _ surreal.RecordID) (models.Record, error) {
	return m.selectRec, m.selectErr
}

func (m *mockConn) Delete(_ context.Context, ref surreal.RecordID) error {
	m.deleted = append(m.deleted, ref)
	return m.deleteErr
}

func (m *mockConn) Close(context.Context) error { return nil }

func TestCreateNormalizesID(t *testing.T) {
	conn := &mockConn{createRows: []models.Record{{"id": "boards:enem", "name": "ENEM"}}}
	s := New(conn)

	rec, err := s.Create(context.Background(), models.EntityBoards, map[string]any{"name": "ENEM"})
	require.NoError(t, err)
	assert.Equal(t, "enem", rec["id"])
}

func TestCreateNoRecord(t *testing.T) {
	s := New(&mockConn{})

	_, err := s.Create(context.Background(), models.EntityBoards, map[string]any{})
	assert.ErrorIs(t, err, ErrCreateFailed)
}

func TestUpdateStampsUpdatedAt(t *testing.T) {
	conn := &mockConn{mergeRec: models.Record{"id": "boards:enem", "name": "Enem"}}
	s := New(conn)

	patch := map[string]any{"name": "Enem"}
	rec, err := s.Update(context.Background(), models.EntityBoards, "enem", patch)
	require.NoError(t, err)
	assert.Equal(t, "enem", rec["id"])
	assert.Contains(t, patch, "updatedAt")
}

func TestFindOneWhereMultiplicityWarning(t *testing.T) {
	conn := &mockConn{queryResults: [][]Result{{{
		Status: StatusOK,
		Rows: []models.Record{
			{"id": "users:u1", "email": "a@b.c"},
			{"id": "users:u2", "email": "a@b.c"},
		},
	}}}}
	var logs bytes.Buffer
	s := New(conn, WithLogger(zerolog.New(&logs)))

	rec, err := s.FindOneWhere(context.Background(), models.EntityUsers,
		"email = $email", map[string]any{"email": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "u1", rec["id"], "first row wins")

	// The lookup is unbounded so the violation is observable.
	assert.NotContains(t, conn.queries[0], "LIMIT")
	assert.Equal(t, 1, strings.Count(logs.String(), `"level":"warn"`))
}

func TestFindOneWhereSingleRowNoWarning(t *testing.T) {
	conn := &mockConn{queryResults: [][]Result{{{
		Status: StatusOK,
		Rows:   []models.Record{{"id": "users:u1"}},
	}}}}
	var logs bytes.Buffer
	s := New(conn, WithLogger(zerolog.New(&logs)))

	rec, err := s.FindOneWhere(context.Background(), models.EntityUsers,
		"email = $email", map[string]any{"email": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "u1", rec["id"])
	assert.Empty(t, logs.String())
}

func TestFindOneByUIDNotFound(t *testing.T) {
	s := New(&mockConn{})

	rec, err := s.FindOneByUID(context.Background(), models.EntityBoards, "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFindWhereEmptyResultIsEmptySlice(t *testing.T) {
	conn := &mockConn{queryResults: [][]Result{{{Status: StatusOK}}}}
	s := New(conn)

	recs, err := s.FindWhere(context.Background(), models.EntityQuestions,
		[]query.Filter{query.SingleValue{Key: "year", Value: 1900}}, 0)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestFindWhereTransportError(t *testing.T) {
	conn := &mockConn{queryErr: errors.New("connection reset")}
	s := New(conn)

	_, err := s.FindWhere(context.Background(), models.EntityQuestions, nil, 0)
	assert.Error(t, err)
}

func TestCountEmptyResultIsZero(t *testing.T) {
	conn := &mockConn{queryResults: [][]Result{{{Status: StatusOK}}}}
	s := New(conn)

	total, err := s.Count(context.Background(), models.EntityQuestions, nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCountReadsTotal(t *testing.T) {
	conn := &mockConn{queryResults: [][]Result{{
		{Status: StatusOK, Rows: []models.Record{{"total": int64(42)}}},
	}}}
	s := New(conn)

	total, err := s.Count(context.Background(), models.EntityQuestions, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, total)
}

func TestPaginate(t *testing.T) {
	conn := &mockConn{queryResults: [][]Result{{
		{Status: StatusOK, Rows: []models.Record{{"total": int64(2)}}},
		{Status: StatusOK, Rows: []models.Record{
			{"id": "questions:q1"},
			{"id": "questions:q2"},
		}},
	}}}
	s := New(conn)

	page, err := s.Paginate(context.Background(), models.EntityQuestions, nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "q1", page.Data[0]["id"])
	assert.LessOrEqual(t, len(page.Data), page.Total)
}

func TestPaginateEmptyCount(t *testing.T) {
	conn := &mockConn{queryResults: [][]Result{{
		{Status: StatusOK},
		{Status: StatusOK, Rows: []models.Record{{"id": "questions:stale"}}},
	}}}
	s := New(conn)

	page, err := s.Paginate(context.Background(), models.EntityQuestions, nil, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
}

func TestSelectByFiltersMergesBatches(t *testing.T) {
	conn := &mockConn{queryResults: [][]Result{{
		{Status: StatusOK, Rows: []models.Record{
			{"id": "questions:m1", "subjectId": map[string]any{"id": "subjects:math", "name": "Math"}},
		}},
		{Status: StatusOK, Rows: []models.Record{{"id": "questions:p1"}}},
	}}}
	s := New(conn)

	recs, err := s.SelectByFilters(context.Background(), models.EntityQuestions, []query.Filter{
		query.Selector{Key: "subjectId", Value: "math", Limit: 1, Fetch: []string{"subjectId"}},
		query.Selector{Key: "subjectId", Value: "physics", Limit: 1},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "m1", recs[0]["id"])
	subject := recs[0]["subjectId"].(map[string]any)
	assert.Equal(t, "math", subject["id"])
	assert.Equal(t, "p1", recs[1]["id"])
}

func TestSelectByFiltersWithoutSelectors(t *testing.T) {
	conn := &mockConn{}
	s := New(conn)

	recs, err := s.SelectByFilters(context.Background(), models.EntityQuestions,
		[]query.Filter{query.SingleValue{Key: "year", Value: 2023}})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Empty(t, conn.queries)
}

func TestDeleteSwallowsError(t *testing.T) {
	conn := &mockConn{deleteErr: errors.New("not found")}
	s := New(conn)

	s.Delete(context.Background(), models.EntityBoards, "missing")
	require.Len(t, conn.deleted, 1)
	assert.Equal(t, "boards", conn.deleted[0].Table)
}
