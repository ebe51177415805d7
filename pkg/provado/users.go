package provado

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/provado/provado/pkg/models"
)

type ctxKey int

const claimsKey ctxKey = iota

// roleRank orders roles for access checks; a higher role implies every
// lower one.
var roleRank = map[models.Role]int{
	models.RoleRegular:  1,
	models.RoleVerified: 2,
	models.RolePaid:     3,
	models.RoleAdmin:    4,
}

// requireRole authenticates the request and enforces a minimum role before
// passing control to next. The verified claims travel in the context.
func (a *App) requireRole(min models.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.tokens.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if roleRank[claims.Role] < roleRank[min] {
			respondError(w, http.StatusForbidden, "insufficient role")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

func claimsFrom(r *http.Request) *Claims {
	claims, _ := r.Context().Value(claimsKey).(*Claims)
	return claims
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	CPF      string `json:"cpf"`
}

func (a *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	existing, err := a.store.FindOneWhere(r.Context(), models.EntityUsers,
		"email = $email", map[string]any{"email": req.Email})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if existing != nil {
		respondError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	now := models.Timestamp()
	rec, err := a.store.Create(r.Context(), models.EntityUsers, map[string]any{
		"name":         req.Name,
		"email":        req.Email,
		"cpf":          req.CPF,
		"role":         models.RoleRegular,
		"passwordHash": string(hash),
		"createdAt":    now,
		"updatedAt":    now,
	})
	if err != nil {
		a.log.Error().Err(err).Msg("sign up failed")
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	creds, err := a.tokens.Issue(rec.Str("id"), models.RoleRegular)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue credentials")
		return
	}
	respondJSON(w, http.StatusCreated, creds)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	user, err := a.store.FindOneWhere(r.Context(), models.EntityUsers,
		"email = $email", map[string]any{"email": req.Email})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "sign in failed")
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Str("passwordHash")), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	creds, err := a.tokens.Issue(user.Str("id"), models.Role(user.Str("role")))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue credentials")
		return
	}
	respondJSON(w, http.StatusOK, creds)
}

// handleRefreshToken trades a valid refresh token for a fresh pair.
func (a *App) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decode(r, &req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}
	claims, err := a.tokens.Verify(req.RefreshToken)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	creds, err := a.tokens.Issue(claims.UserID, claims.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue credentials")
		return
	}
	respondJSON(w, http.StatusOK, creds)
}

// handleCurrentUser returns the authenticated user's record, with the
// password hash stripped.
func (a *App) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	user, err := a.store.FindOneByUID(r.Context(), models.EntityUsers, claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	delete(user, "passwordHash")
	respondJSON(w, http.StatusOK, user)
}
