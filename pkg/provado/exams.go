package provado

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/provado/provado/pkg/models"
	"github.com/provado/provado/pkg/query"
)

var examRelations = []models.Relation{
	{IDCol: "boardId", Entity: models.EntityBoards, Cardinality: models.CardinalitySingle, Alias: "board"},
	{IDCol: "institutionId", Entity: models.EntityInstitutions, Cardinality: models.CardinalitySingle, Alias: "institution"},
	{IDCol: "questionsIds", Entity: models.EntityQuestions, Cardinality: models.CardinalityMultiple, Alias: "questions"},
}

type createExamRequest struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Year          int      `json:"year,omitempty"`
	QuestionsIDs  []string `json:"questionsIds"`
	InstitutionID string   `json:"institutionId,omitempty"`
	BoardID       string   `json:"boardId,omitempty"`
}

// handleCreateExam registers an official past exam with its question set.
func (a *App) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Code == "" || req.Name == "" || len(req.QuestionsIDs) == 0 {
		respondError(w, http.StatusBadRequest, "code, name and questionsIds are required")
		return
	}

	now := models.Timestamp()
	rec := map[string]any{
		"type":         models.ExamAssessment,
		"code":         req.Code,
		"name":         req.Name,
		"questionsIds": questionRefs(req.QuestionsIDs),
		"createdAt":    now,
		"updatedAt":    now,
	}
	if req.Year != 0 {
		rec["year"] = req.Year
	}
	if req.InstitutionID != "" {
		rec["institutionId"] = models.Ref(models.EntityInstitutions, req.InstitutionID)
	}
	if req.BoardID != "" {
		rec["boardId"] = models.Ref(models.EntityBoards, req.BoardID)
	}

	created, err := a.store.Create(r.Context(), models.EntityExams, rec)
	if err != nil {
		a.log.Error().Err(err).Str("code", req.Code).Msg("create exam failed")
		respondError(w, http.StatusInternalServerError, "failed to create exam")
		return
	}
	respondJSON(w, http.StatusCreated, models.NormalizeRecordWithRelations(created, examRelations))
}

type mockExamRequest struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	MockQuestions []struct {
		SubjectID string `json:"subjectId"`
		Times     int    `json:"times"`
	} `json:"mockQuestions"`
}

// handleCreateMockExam assembles an exam from random question draws, one
// bounded draw per requested subject. A subject whose question pool is
// smaller than the demanded draw rejects the whole request.
func (a *App) handleCreateMockExam(w http.ResponseWriter, r *http.Request) {
	var req mockExamRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Code == "" || req.Name == "" || len(req.MockQuestions) == 0 {
		respondError(w, http.StatusBadRequest, "code, name and mockQuestions are required")
		return
	}

	var questionsIDs []any
	for _, mq := range req.MockQuestions {
		if mq.SubjectID == "" || mq.Times <= 0 {
			respondError(w, http.StatusBadRequest, "mockQuestions entries need subjectId and a positive times")
			return
		}
		drawn, err := a.store.FindRandom(r.Context(), models.EntityQuestions,
			[]query.Filter{query.SingleValue{
				Key:   "subjectId",
				Value: models.Ref(models.EntitySubjects, mq.SubjectID),
			}}, mq.Times)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to draw questions")
			return
		}
		if len(drawn) < mq.Times {
			respondError(w, http.StatusBadRequest, fmt.Sprintf(
				"subject %s has fewer questions than the demanded draw size %d", mq.SubjectID, mq.Times))
			return
		}
		for _, q := range drawn {
			questionsIDs = append(questionsIDs, models.Ref(models.EntityQuestions, q.Str("id")))
		}
	}

	now := models.Timestamp()
	created, err := a.store.Create(r.Context(), models.EntityExams, map[string]any{
		"type":         models.ExamMock,
		"code":         req.Code,
		"name":         req.Name,
		"questionsIds": questionsIDs,
		"createdAt":    now,
		"updatedAt":    now,
	})
	if err != nil {
		a.log.Error().Err(err).Str("code", req.Code).Msg("create mock exam failed")
		respondError(w, http.StatusInternalServerError, "failed to create exam")
		return
	}
	respondJSON(w, http.StatusCreated, models.NormalizeRecordWithRelations(created, examRelations))
}

func (a *App) handleListExams(w http.ResponseWriter, r *http.Request) {
	start, limit := pageParams(r)
	page, err := a.store.Paginate(r.Context(), models.EntityExams, nil, limit, start)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list exams")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// handleSearchExams searches code and name through the shared index.
func (a *App) handleSearchExams(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("terms")
	if term == "" {
		respondError(w, http.StatusBadRequest, "terms query parameter is required")
		return
	}
	start, limit := pageParams(r)
	recs, err := a.store.Search(r.Context(), models.EntityExams, []string{"code", "name"}, term, limit, start)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (a *App) handleGetExam(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	withRelations := r.URL.Query().Get("withRelations") == "true"

	var rec models.Record
	var err error
	if withRelations {
		rec, err = a.store.FindOneWithRelationsByUID(r.Context(), models.EntityExams, uid, examRelations)
	} else {
		rec, err = a.store.FindOneByUID(r.Context(), models.EntityExams, uid)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load exam")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// handleUpdateExam merges a partial payload into an exam. The code is
// immutable once assigned, so it is dropped along with the server-managed
// fields before merging.
func (a *App) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	var patch map[string]any
	if err := decode(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	delete(patch, "id")
	delete(patch, "code")
	delete(patch, "createdAt")
	if uidVal, ok := patch["boardId"].(string); ok {
		patch["boardId"] = models.Ref(models.EntityBoards, uidVal)
	}
	if uidVal, ok := patch["institutionId"].(string); ok {
		patch["institutionId"] = models.Ref(models.EntityInstitutions, uidVal)
	}
	if list, ok := patch["questionsIds"].([]any); ok {
		refs := make([]any, 0, len(list))
		for _, item := range list {
			if qUID, ok := item.(string); ok {
				refs = append(refs, models.Ref(models.EntityQuestions, qUID))
				continue
			}
			refs = append(refs, item)
		}
		patch["questionsIds"] = refs
	}

	rec, err := a.store.Update(r.Context(), models.EntityExams, uid, patch)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update exam")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (a *App) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	a.store.Delete(r.Context(), models.EntityExams, uid)
	respondJSON(w, http.StatusNoContent, nil)
}

func questionRefs(uids []string) []any {
	refs := make([]any, 0, len(uids))
	for _, uid := range uids {
		refs = append(refs, models.Ref(models.EntityQuestions, uid))
	}
	return refs
}
