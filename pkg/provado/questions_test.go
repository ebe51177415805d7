package provado

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provado/provado/pkg/models"
	"github.com/provado/provado/pkg/query"
)

func TestParseQuestionFiltersSingleValues(t *testing.T) {
	filters := parseQuestionFilters(url.Values{
		"year":           {"2023"},
		"educationStage": {"2"},
		"institutionId":  {"usp"},
		"ignored":        {"whatever"},
	})

	require.Len(t, filters, 3)
	byKey := map[string]query.Filter{}
	for _, f := range filters {
		switch f := f.(type) {
		case query.SingleValue:
			byKey[f.Key] = f
		default:
			t.Fatalf("unexpected filter type %T", f)
		}
	}

	assert.Equal(t, query.SingleValue{Key: "year", Value: 2023}, byKey["year"])
	assert.Equal(t, query.SingleValue{Key: "educationStage", Value: 2}, byKey["educationStage"])
	assert.Equal(t, query.SingleValue{
		Key:   "institutionId",
		Value: models.Ref(models.EntityInstitutions, "usp"),
	}, byKey["institutionId"])
}

func TestParseQuestionFiltersRange(t *testing.T) {
	filters := parseQuestionFilters(url.Values{"fromTo": {"2019,2023"}})

	require.Len(t, filters, 1)
	assert.Equal(t, query.Range{Key: "year", From: 2019, To: 2023}, filters[0])
}

func TestParseQuestionFiltersMalformedRangeSkipped(t *testing.T) {
	assert.Empty(t, parseQuestionFilters(url.Values{"fromTo": {"2019"}}))
	assert.Empty(t, parseQuestionFilters(url.Values{"fromTo": {"a,b"}}))
}

func TestParseQuestionFiltersMultipleValues(t *testing.T) {
	filters := parseQuestionFilters(url.Values{"boardIdOR": {"enem,fuvest"}})

	require.Len(t, filters, 1)
	mv, ok := filters[0].(query.MultipleValues)
	require.True(t, ok)
	assert.Equal(t, "boardId", mv.Key)
	assert.Equal(t, query.ConditionOr, mv.Condition)
	assert.Equal(t, []any{
		models.Ref(models.EntityBoards, "enem"),
		models.Ref(models.EntityBoards, "fuvest"),
	}, mv.Values)
}

func TestParseQuestionFiltersSelectors(t *testing.T) {
	filters := parseQuestionFilters(url.Values{
		"subjectIdSELECTOR": {"5_math,3_physics"},
	})

	require.Len(t, filters, 2)
	first, ok := filters[0].(query.Selector)
	require.True(t, ok)
	assert.Equal(t, "subjectId", first.Key)
	assert.Equal(t, 5, first.Limit)
	assert.Equal(t, models.Ref(models.EntitySubjects, "math"), first.Value)
	assert.Equal(t, []string{"subjectId"}, first.Fetch)

	second := filters[1].(query.Selector)
	assert.Equal(t, 3, second.Limit)
}

func TestParseQuestionFiltersSelectorFetchFollowsParams(t *testing.T) {
	filters := parseQuestionFilters(url.Values{
		"boardIdOR":         {"enem"},
		"subjectIdSELECTOR": {"5_math"},
	})

	var sel query.Selector
	for _, f := range filters {
		if s, ok := f.(query.Selector); ok {
			sel = s
		}
	}
	assert.Equal(t, []string{"subjectId", "boardId"}, sel.Fetch)
}

func TestParseQuestionFiltersMalformedSelectorSkipped(t *testing.T) {
	assert.Empty(t, parseQuestionFilters(url.Values{"subjectIdSELECTOR": {"math"}}))
	assert.Empty(t, parseQuestionFilters(url.Values{"subjectIdSELECTOR": {"x_math"}}))
	assert.Empty(t, parseQuestionFilters(url.Values{"subjectIdSELECTOR": {"0_math"}}))
}

func TestCreateQuestionValidation(t *testing.T) {
	base := createQuestionRequest{
		Code:         "q-001",
		Prompt:       "2 + 2 = ?",
		Alternatives: []string{"3", "4"},
		CorrectIndex: 1,
		SubjectID:    "math",
	}
	require.NoError(t, base.validate())

	missing := base
	missing.SubjectID = ""
	assert.Error(t, missing.validate())

	outOfRange := base
	outOfRange.CorrectIndex = 2
	assert.Error(t, outOfRange.validate())
}

func TestCreateQuestionRecordQualifiesRefs(t *testing.T) {
	req := createQuestionRequest{
		Code:         "q-001",
		Prompt:       "2 + 2 = ?",
		Alternatives: []string{"3", "4"},
		CorrectIndex: 1,
		SubjectID:    "math",
		BoardID:      "enem",
	}

	rec := req.record()
	assert.Equal(t, models.Ref(models.EntitySubjects, "math"), rec["subjectId"])
	assert.Equal(t, models.Ref(models.EntityBoards, "enem"), rec["boardId"])
	assert.NotContains(t, rec, "institutionId")
	assert.NotContains(t, rec, "year")
	assert.Contains(t, rec, "createdAt")
}
