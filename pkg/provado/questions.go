package provado

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/provado/provado/pkg/models"
	"github.com/provado/provado/pkg/query"
)

var questionRelations = []models.Relation{
	{IDCol: "subjectId", Entity: models.EntitySubjects, Cardinality: models.CardinalitySingle, Alias: "subject"},
	{IDCol: "institutionId", Entity: models.EntityInstitutions, Cardinality: models.CardinalitySingle, Alias: "institution"},
	{IDCol: "boardId", Entity: models.EntityBoards, Cardinality: models.CardinalitySingle, Alias: "board"},
}

// questionRefCols are the reference columns a FETCH clause may expand.
var questionRefCols = []string{"subjectId", "institutionId", "boardId", "examId"}

// parseQuestionFilters maps the supported query parameters onto the filter
// model. Reference values are bound as record ids. Unknown parameters are
// ignored.
//
// Supported parameters:
//
//	year=2023                  exact year
//	fromTo=2019,2023           year interval
//	institutionId=<uid>        exact institution
//	educationStage=2           exact stage
//	boardIdOR=<uid>,<uid>      any of the boards
//	subjectIdOR=<uid>,<uid>    any of the subjects
//	subjectIdSELECTOR=5_<uid>  per-subject bounded batch, "limit_uid" pairs
func parseQuestionFilters(params url.Values) []query.Filter {
	var fetch []string
	for _, col := range questionRefCols {
		for key := range params {
			if strings.HasPrefix(key, strings.TrimSuffix(col, "Id")) {
				fetch = append(fetch, col)
				break
			}
		}
	}

	var filters []query.Filter
	for key, values := range params {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch key {
		case "year":
			if year, err := strconv.Atoi(value); err == nil {
				filters = append(filters, query.SingleValue{Key: "year", Value: year})
			}
		case "institutionId":
			filters = append(filters, query.SingleValue{
				Key:   "institutionId",
				Value: models.Ref(models.EntityInstitutions, value),
			})
		case "educationStage":
			if stage, err := strconv.Atoi(value); err == nil {
				filters = append(filters, query.SingleValue{Key: "educationStage", Value: stage})
			}
		case "fromTo":
			parts := strings.SplitN(value, ",", 2)
			if len(parts) != 2 {
				continue
			}
			from, errFrom := strconv.Atoi(parts[0])
			to, errTo := strconv.Atoi(parts[1])
			if errFrom == nil && errTo == nil {
				filters = append(filters, query.Range{Key: "year", From: from, To: to})
			}
		case "boardIdOR":
			filters = append(filters, query.MultipleValues{
				Key:       "boardId",
				Values:    refValues(models.EntityBoards, value),
				Condition: query.ConditionOr,
			})
		case "subjectIdOR":
			filters = append(filters, query.MultipleValues{
				Key:       "subjectId",
				Values:    refValues(models.EntitySubjects, value),
				Condition: query.ConditionOr,
			})
		case "subjectIdSELECTOR":
			for _, pair := range strings.Split(value, ",") {
				limitStr, uid, ok := strings.Cut(pair, "_")
				if !ok {
					continue
				}
				limit, err := strconv.Atoi(limitStr)
				if err != nil || limit <= 0 {
					continue
				}
				filters = append(filters, query.Selector{
					Key:   "subjectId",
					Value: models.Ref(models.EntitySubjects, uid),
					Limit: limit,
					Fetch: fetch,
				})
			}
		}
	}
	return filters
}

// withholdAnswers strips the answer key from records served for practice.
// Practice endpoints never reveal correctIndex or answerExplanation; the
// client submits an answer and learns the outcome afterwards.
func withholdAnswers(recs []models.Record) []models.Record {
	for _, rec := range recs {
		delete(rec, "correctIndex")
		delete(rec, "answerExplanation")
	}
	return recs
}

func refValues(entity models.Entity, csv string) []any {
	parts := strings.Split(csv, ",")
	values := make([]any, 0, len(parts))
	for _, uid := range parts {
		if uid == "" {
			continue
		}
		values = append(values, models.Ref(entity, uid))
	}
	return values
}

type createQuestionRequest struct {
	Code              string                `json:"code"`
	Prompt            string                `json:"prompt"`
	Illustration      string                `json:"illustration,omitempty"`
	Alternatives      []string              `json:"alternatives"`
	AnswerExplanation string                `json:"answerExplanation,omitempty"`
	CorrectIndex      int                   `json:"correctIndex"`
	Year              int                   `json:"year,omitempty"`
	EducationStage    models.EducationStage `json:"educationStage,omitempty"`
	SubjectID         string                `json:"subjectId"`
	InstitutionID     string                `json:"institutionId,omitempty"`
	BoardID           string                `json:"boardId,omitempty"`
	ExamID            string                `json:"examId,omitempty"`
}

func (req *createQuestionRequest) record() map[string]any {
	now := models.Timestamp()
	rec := map[string]any{
		"code":         req.Code,
		"prompt":       req.Prompt,
		"alternatives": req.Alternatives,
		"correctIndex": req.CorrectIndex,
		"subjectId":    models.Ref(models.EntitySubjects, req.SubjectID),
		"createdAt":    now,
		"updatedAt":    now,
	}
	if req.Illustration != "" {
		rec["illustration"] = req.Illustration
	}
	if req.AnswerExplanation != "" {
		rec["answerExplanation"] = req.AnswerExplanation
	}
	if req.Year != 0 {
		rec["year"] = req.Year
	}
	if req.EducationStage != 0 {
		rec["educationStage"] = req.EducationStage
	}
	if req.InstitutionID != "" {
		rec["institutionId"] = models.Ref(models.EntityInstitutions, req.InstitutionID)
	}
	if req.BoardID != "" {
		rec["boardId"] = models.Ref(models.EntityBoards, req.BoardID)
	}
	if req.ExamID != "" {
		rec["examId"] = models.Ref(models.EntityExams, req.ExamID)
	}
	return rec
}

func (req *createQuestionRequest) validate() error {
	if req.Code == "" || req.Prompt == "" || req.SubjectID == "" {
		return fmt.Errorf("code, prompt and subjectId are required")
	}
	if len(req.Alternatives) == 0 {
		return fmt.Errorf("alternatives are required")
	}
	if req.CorrectIndex < 0 || req.CorrectIndex >= len(req.Alternatives) {
		return fmt.Errorf("correctIndex out of range")
	}
	return nil
}

func (a *App) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := a.store.Create(r.Context(), models.EntityQuestions, req.record())
	if err != nil {
		a.log.Error().Err(err).Str("code", req.Code).Msg("create question failed")
		respondError(w, http.StatusInternalServerError, "failed to create question")
		return
	}
	respondJSON(w, http.StatusCreated, models.NormalizeRecordWithRelations(rec, questionRelations))
}

// handleCreateQuestions inserts a batch of questions. All records are
// created in one call; a row that fails validation rejects the batch.
func (a *App) handleCreateQuestions(w http.ResponseWriter, r *http.Request) {
	var reqs []createQuestionRequest
	if err := decode(r, &reqs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if len(reqs) == 0 {
		respondError(w, http.StatusBadRequest, "empty batch")
		return
	}

	created := make([]models.Record, 0, len(reqs))
	for i := range reqs {
		if err := reqs[i].validate(); err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("question %d: %s", i, err))
			return
		}
	}
	for i := range reqs {
		rec, err := a.store.Create(r.Context(), models.EntityQuestions, reqs[i].record())
		if err != nil {
			a.log.Error().Err(err).Str("code", reqs[i].Code).Msg("bulk create failed")
			respondError(w, http.StatusInternalServerError, "failed to create questions")
			return
		}
		created = append(created, rec)
	}
	respondJSON(w, http.StatusCreated, created)
}

func (a *App) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	start, limit := pageParams(r)
	page, err := a.store.PaginateWithRelations(r.Context(), models.EntityQuestions,
		nil, limit, start, questionRelations)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list questions")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// handleSearchQuestions searches by exact-ish code or by free text over the
// prompt index, depending on which parameter is present.
func (a *App) handleSearchQuestions(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	terms := r.URL.Query().Get("terms")
	if code == "" && terms == "" {
		respondError(w, http.StatusBadRequest, "code or terms query parameter is required")
		return
	}

	start, limit := pageParams(r)
	field, term := "prompt", terms
	if code != "" {
		field, term = "code", code
	}
	recs, err := a.store.Search(r.Context(), models.EntityQuestions, []string{field}, term, limit, start)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	// Code lookup is a curation path; free-text search serves practice.
	if code == "" {
		withholdAnswers(recs)
	}
	respondJSON(w, http.StatusOK, recs)
}

// handleValidateQuestionCode reports whether a question code is still free.
func (a *App) handleValidateQuestionCode(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	rec, err := a.store.FindOneWhere(r.Context(), models.EntityQuestions,
		"code = $code", map[string]any{"code": code})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "validation failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": rec == nil})
}

func (a *App) handleCountQuestions(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	value := r.URL.Query().Get("value")
	if key == "" || value == "" {
		respondError(w, http.StatusBadRequest, "key and value query parameters are required")
		return
	}

	total, err := a.store.Count(r.Context(), models.EntityQuestions,
		[]query.Filter{query.SingleValue{Key: key, Value: value}})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "count failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"total": total})
}

// handleSelectQuestions fetches a set of questions by id, with every
// reference column expanded.
func (a *App) handleSelectQuestions(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		respondError(w, http.StatusBadRequest, "ids query parameter is required")
		return
	}
	ids := refValues(models.EntityQuestions, idsParam)
	if len(ids) == 0 {
		respondJSON(w, http.StatusOK, []models.Record{})
		return
	}

	where, vars := query.BuildWhere([]query.Filter{
		query.MultipleValues{Key: "id", Values: ids, Condition: query.ConditionOr},
	})
	sql := fmt.Sprintf("SELECT * FROM questions WHERE %s FETCH %s;",
		where, strings.Join(questionRefCols, ", "))
	results, err := a.store.Query(r.Context(), sql, vars)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to select questions")
		return
	}

	recs := []models.Record{}
	if len(results) > 0 {
		for _, rec := range results[0].Rows {
			recs = append(recs, models.NormalizeFetched(models.NormalizeRecord(rec), questionRefCols))
		}
	}
	respondJSON(w, http.StatusOK, withholdAnswers(recs))
}

// handleQuestionsPrefilter summarizes how many questions each subject has
// under the given filters, for building the filter UI.
func (a *App) handleQuestionsPrefilter(w http.ResponseWriter, r *http.Request) {
	filters := parseQuestionFilters(r.URL.Query())
	where, vars := query.BuildWhere(filters)

	sql := "SELECT subjectId, count() AS total FROM questions"
	if where != "" {
		sql += " WHERE " + where
	}
	sql += " GROUP BY subjectId FETCH subjectId;"

	results, err := a.store.Query(r.Context(), sql, vars)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "prefilter failed")
		return
	}

	type subjectSummary struct {
		Subject models.Record `json:"subject"`
		Total   int           `json:"total"`
	}
	summaries := []subjectSummary{}
	if len(results) > 0 {
		for _, rec := range results[0].Rows {
			summary := subjectSummary{}
			if ref, ok := models.ParseRef(rec["subjectId"]); ok && ref.IsExpanded() {
				summary.Subject = models.NormalizeRecord(ref.Expanded)
			}
			if total, ok := rec["total"].(int64); ok {
				summary.Total = int(total)
			} else if total, ok := rec["total"].(float64); ok {
				summary.Total = int(total)
			}
			summaries = append(summaries, summary)
		}
	}
	respondJSON(w, http.StatusOK, summaries)
}

// handleFilterQuestions runs the selector batches: one bounded draw per
// selected subject, all under the shared plain filters.
func (a *App) handleFilterQuestions(w http.ResponseWriter, r *http.Request) {
	filters := parseQuestionFilters(r.URL.Query())
	recs, err := a.store.SelectByFilters(r.Context(), models.EntityQuestions, filters)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "filter failed")
		return
	}
	respondJSON(w, http.StatusOK, withholdAnswers(recs))
}

func (a *App) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	withRelations := r.URL.Query().Get("withRelations") == "true"

	var rec models.Record
	var err error
	if withRelations {
		rec, err = a.store.FindOneWithRelationsByUID(r.Context(), models.EntityQuestions, uid, questionRelations)
	} else {
		rec, err = a.store.FindOneByUID(r.Context(), models.EntityQuestions, uid)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load question")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "question not found")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (a *App) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	var patch map[string]any
	if err := decode(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	delete(patch, "id")
	delete(patch, "code")
	delete(patch, "createdAt")
	for _, col := range questionRefCols {
		if uidVal, ok := patch[col].(string); ok {
			entity := models.Entity(strings.TrimSuffix(col, "Id") + "s")
			patch[col] = models.Ref(entity, uidVal)
		}
	}

	rec, err := a.store.Update(r.Context(), models.EntityQuestions, uid, patch)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update question")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

type answerQuestionRequest struct {
	QuestionID               string `json:"questionId"`
	AnsweredAlternativeIndex *int   `json:"answeredAlternativeIndex"`
}

// handleAnswerQuestion records the alternative the authenticated user picked
// for a question, as a timestamped edge from the user to the question.
func (a *App) handleAnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req answerQuestionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.QuestionID == "" || req.AnsweredAlternativeIndex == nil || *req.AnsweredAlternativeIndex < 0 {
		respondError(w, http.StatusBadRequest, "questionId and a non-negative answeredAlternativeIndex are required")
		return
	}

	claims := claimsFrom(r)
	sql, vars := query.Relate(
		models.Ref(models.EntityUsers, claims.UserID),
		string(models.EntityAnswered),
		models.Ref(models.EntityQuestions, req.QuestionID),
		map[string]any{
			"at":                       models.Timestamp(),
			"answeredAlternativeIndex": *req.AnsweredAlternativeIndex,
		})
	results, err := a.store.Query(r.Context(), sql, vars)
	if err != nil {
		a.log.Error().Err(err).Str("questionId", req.QuestionID).Msg("record answer failed")
		respondError(w, http.StatusInternalServerError, "failed to record answer")
		return
	}

	var rec models.Record
	if len(results) > 0 && len(results[0].Rows) > 0 {
		rec = models.NormalizeFetched(models.NormalizeRecord(results[0].Rows[0]), []string{"in", "out"})
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (a *App) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	a.store.Delete(r.Context(), models.EntityQuestions, uid)
	respondJSON(w, http.StatusNoContent, nil)
}
