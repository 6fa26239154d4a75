package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ats-matcher/internal/config"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
	"github.com/fairyhunter13/ats-matcher/internal/usecase"
)

// AnalysisService is the match engine surface the handlers depend on.
type AnalysisService interface {
	Analyze(ctx domain.Context, key domain.AnalysisKey) (domain.AnalysisResult, error)
	Recompute(ctx domain.Context, key domain.AnalysisKey) (domain.AnalysisResult, error)
	Cached(ctx domain.Context, key domain.AnalysisKey) (domain.AnalysisResult, error)
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg        config.Config
	Analyses   AnalysisService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, analyses AnalysisService, dbCheck func(context.Context) error, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Analyses: analyses, DBCheck: dbCheck, RedisCheck: redisCheck}
}

type analyzeRequest struct {
	CandidateID int64 `json:"candidate_id" validate:"required,gt=0"`
	JobID       int64 `json:"job_id" validate:"required,gt=0"`
	CompanyID   int64 `json:"company_id" validate:"gte=0"`
	Force       bool  `json:"force"`
}

func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || a == "*/*" || strings.Contains(a, "application/json") || strings.Contains(a, "application/*") {
		return true
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a}}})
	return false
}

// AnalyzeHandler computes, or serves from cache, the analysis for the posted triple.
// Setting force skips the cache and always recomputes.
func (s *Server) AnalyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
		var req analyzeRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			verrs := map[string]string{}
			if ve, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range ve {
					verrs[fieldName(fe.Field())] = fe.Tag()
				}
			}
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
			return
		}
		key := domain.AnalysisKey{CandidateID: req.CandidateID, JobID: req.JobID, CompanyID: req.CompanyID}
		run := s.Analyses.Analyze
		if req.Force {
			run = s.Analyses.Recompute
		}
		res, err := run(r.Context(), key)
		if err != nil {
			writeError(w, r, fmt.Errorf("analyze: %w", err), nil)
			return
		}
		view := usecase.NewAnalysisView(res)
		w.Header().Set("ETag", usecase.ETag(view))
		writeJSON(w, http.StatusOK, view)
	}
}

// AnalysisHandler returns the stored analysis for the triple in the path without computing.
func (s *Server) AnalysisHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		cid, v1 := ParseID("candidate_id", chi.URLParam(r, "candidateID"), false)
		jid, v2 := ParseID("job_id", chi.URLParam(r, "jobID"), false)
		coid, v3 := ParseID("company_id", chi.URLParam(r, "companyID"), true)
		if v := Merge(v1, v2, v3); !v.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid path", domain.ErrInvalidArgument), v.Errors)
			return
		}
		res, err := s.Analyses.Cached(r.Context(), domain.AnalysisKey{CandidateID: cid, JobID: jid, CompanyID: coid})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		view := usecase.NewAnalysisView(res)
		etag := usecase.ETag(view)
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// HealthzHandler reports liveness only.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler returns a readiness handler that probes DB and Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		probe := func(name string, fn func(context.Context) error) {
			if fn == nil {
				return
			}
			if err := fn(ctx); err != nil {
				checks = append(checks, check{Name: name, OK: false, Details: err.Error()})
				return
			}
			checks = append(checks, check{Name: name, OK: true})
		}
		probe("db", s.DBCheck)
		probe("redis", s.RedisCheck)

		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

func fieldName(goName string) string {
	switch goName {
	case "CandidateID":
		return "candidate_id"
	case "JobID":
		return "job_id"
	case "CompanyID":
		return "company_id"
	default:
		return strings.ToLower(goName)
	}
}
