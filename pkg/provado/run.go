package provado

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/provado/provado/pkg/models"
)

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails. In production the migration catalog is applied before
// the server accepts traffic.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	// Migration failures are logged, never fatal: the server still starts
	// and the next start retries whatever was left unrecorded.
	if a.config.Production() {
		if err := a.store.RunAllMigrations(ctx); err != nil {
			a.log.Error().Err(err).Msg("migrations incomplete")
		}
	}

	router := mux.NewRouter()
	router.Use(a.logRequests)
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", a.handleHealth).Methods("GET")

	api.HandleFunc("/auth/signup", a.handleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", a.handleSignIn).Methods("POST")
	api.HandleFunc("/auth/refresh", a.handleRefreshToken).Methods("POST")
	api.HandleFunc("/users/data", a.requireRole(models.RoleRegular, a.handleCurrentUser)).Methods("GET")

	for path, entity := range map[string]models.Entity{
		"boards":       models.EntityBoards,
		"subjects":     models.EntitySubjects,
		"institutions": models.EntityInstitutions,
	} {
		res := &catalogResource{app: a, entity: entity}
		api.HandleFunc("/"+path, a.requireRole(models.RoleAdmin, res.handleCreate)).Methods("POST")
		api.HandleFunc("/"+path, res.handleList).Methods("GET")
		api.HandleFunc("/"+path+"/search", res.handleSearch).Methods("GET")
		api.HandleFunc("/"+path+"/{uid}", res.handleGet).Methods("GET")
		api.HandleFunc("/"+path+"/{uid}", a.requireRole(models.RoleAdmin, res.handleUpdate)).Methods("PATCH")
		api.HandleFunc("/"+path+"/{uid}", a.requireRole(models.RoleAdmin, res.handleDelete)).Methods("DELETE")
	}

	// Fixed question paths come before the {uid} catch-all.
	api.HandleFunc("/questions", a.requireRole(models.RoleAdmin, a.handleCreateQuestion)).Methods("POST")
	api.HandleFunc("/questions", a.requireRole(models.RolePaid, a.handleListQuestions)).Methods("GET")
	api.HandleFunc("/questions/bulk", a.requireRole(models.RoleAdmin, a.handleCreateQuestions)).Methods("POST")
	api.HandleFunc("/questions/search", a.requireRole(models.RolePaid, a.handleSearchQuestions)).Methods("GET")
	api.HandleFunc("/questions/prefilter", a.requireRole(models.RolePaid, a.handleQuestionsPrefilter)).Methods("GET")
	api.HandleFunc("/questions/filter", a.requireRole(models.RolePaid, a.handleFilterQuestions)).Methods("GET")
	api.HandleFunc("/questions/count", a.requireRole(models.RoleAdmin, a.handleCountQuestions)).Methods("GET")
	api.HandleFunc("/questions/select", a.requireRole(models.RolePaid, a.handleSelectQuestions)).Methods("GET")
	api.HandleFunc("/questions/validate-code/{code}", a.requireRole(models.RoleAdmin, a.handleValidateQuestionCode)).Methods("GET")
	api.HandleFunc("/questions/answer", a.requireRole(models.RolePaid, a.handleAnswerQuestion)).Methods("POST")
	api.HandleFunc("/questions/{uid}", a.requireRole(models.RolePaid, a.handleGetQuestion)).Methods("GET")
	api.HandleFunc("/questions/{uid}", a.requireRole(models.RoleAdmin, a.handleUpdateQuestion)).Methods("PATCH")
	api.HandleFunc("/questions/{uid}", a.requireRole(models.RoleAdmin, a.handleDeleteQuestion)).Methods("DELETE")

	api.HandleFunc("/exams", a.requireRole(models.RoleAdmin, a.handleCreateExam)).Methods("POST")
	api.HandleFunc("/exams", a.requireRole(models.RolePaid, a.handleListExams)).Methods("GET")
	api.HandleFunc("/exams/mock", a.requireRole(models.RolePaid, a.handleCreateMockExam)).Methods("POST")
	api.HandleFunc("/exams/search", a.requireRole(models.RolePaid, a.handleSearchExams)).Methods("GET")
	api.HandleFunc("/exams/{uid}", a.requireRole(models.RolePaid, a.handleGetExam)).Methods("GET")
	api.HandleFunc("/exams/{uid}", a.requireRole(models.RoleAdmin, a.handleUpdateExam)).Methods("PATCH")
	api.HandleFunc("/exams/{uid}", a.requireRole(models.RoleAdmin, a.handleDeleteExam)).Methods("DELETE")

	server := &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	a.log.Info().Str("addr", server.Addr).Str("environment", a.config.Environment).Msg("starting server")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()
		next.ServeHTTP(w, r)
		a.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(begin)).
			Msg("request")
	})
}
