package provado

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/provado/provado/pkg/models"
)

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// catalogResource serves the entities that share the name/img/thumb shape
// and the simplePt name search index: boards, subjects, institutions.
type catalogResource struct {
	app    *App
	entity models.Entity
}

type catalogRequest struct {
	Name  string `json:"name"`
	Img   string `json:"img,omitempty"`
	Thumb string `json:"thumb,omitempty"`
}

func (c *catalogResource) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	now := models.Timestamp()
	rec, err := c.app.store.Create(r.Context(), c.entity, map[string]any{
		"name":      req.Name,
		"img":       req.Img,
		"thumb":     req.Thumb,
		"createdAt": now,
		"updatedAt": now,
	})
	if err != nil {
		c.app.log.Error().Err(err).Str("entity", string(c.entity)).Msg("create failed")
		respondError(w, http.StatusInternalServerError, "failed to create record")
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (c *catalogResource) handleList(w http.ResponseWriter, r *http.Request) {
	start, limit := pageParams(r)
	page, err := c.app.store.Paginate(r.Context(), c.entity, nil, limit, start)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (c *catalogResource) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("name")
	if term == "" {
		respondError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}
	start, limit := pageParams(r)
	recs, err := c.app.store.Search(r.Context(), c.entity, []string{"name"}, term, limit, start)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (c *catalogResource) handleGet(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	rec, err := c.app.store.FindOneByUID(r.Context(), c.entity, uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (c *catalogResource) handleUpdate(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	var patch map[string]any
	if err := decode(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	delete(patch, "id")
	delete(patch, "createdAt")

	rec, err := c.app.store.Update(r.Context(), c.entity, uid, patch)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update record")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (c *catalogResource) handleDelete(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	c.app.store.Delete(r.Context(), c.entity, uid)
	respondJSON(w, http.StatusNoContent, nil)
}
