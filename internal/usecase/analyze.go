// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	obs "github.com/fairyhunter13/ats-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/ats-matcher/internal/analysis"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
	intobs "github.com/fairyhunter13/ats-matcher/internal/observability"
	"github.com/fairyhunter13/ats-matcher/internal/scoring"
	"github.com/fairyhunter13/ats-matcher/internal/service/inflight"
)

// DimensionAnalyzer scores one axis of a candidate/job pair and never fails.
type DimensionAnalyzer interface {
	Analyze(ctx domain.Context, s domain.MatchSubject) domain.DimensionResult
}

// NarrativeGenerator writes strengths and weaknesses and never fails.
type NarrativeGenerator interface {
	Generate(ctx domain.Context, s domain.MatchSubject) domain.StrengthsWeaknesses
}

// AnalyzeService is the single entry point for candidate/job match analysis.
type AnalyzeService struct {
	Candidates domain.CandidateRepository
	Jobs       domain.JobRepository
	Companies  domain.CompanyRepository
	Cache      *AnalysisCache

	Skills     DimensionAnalyzer
	Experience DimensionAnalyzer
	Cultural   DimensionAnalyzer
	Narrative  NarrativeGenerator

	// Model is recorded as ai_model on every computed result.
	Model string

	// Lock, when set, keeps replicas from computing the same key at once.
	Lock     inflight.Locker
	LockWait time.Duration

	group singleflight.Group
}

// NewAnalyzeService wires the analyzers over one oracle.
func NewAnalyzeService(c domain.CandidateRepository, j domain.JobRepository, co domain.CompanyRepository, cache *AnalysisCache, o domain.Oracle, model string, opts analysis.Options) *AnalyzeService {
	return &AnalyzeService{
		Candidates: c,
		Jobs:       j,
		Companies:  co,
		Cache:      cache,
		Skills:     analysis.NewSkillsAnalyzer(o, opts),
		Experience: analysis.NewExperienceAnalyzer(o, opts),
		Cultural:   analysis.NewCulturalFitAnalyzer(o, opts),
		Narrative:  analysis.NewGenerator(o, opts),
		Model:      model,
	}
}

// WithLock enables the cross-process guard. wait bounds how long a caller waits for a peer.
func (s *AnalyzeService) WithLock(l inflight.Locker, wait time.Duration) *AnalyzeService {
	s.Lock = l
	s.LockWait = wait
	return s
}

// Analyze returns the cached analysis for key when fresh, otherwise computes and stores a new one.
func (s *AnalyzeService) Analyze(ctx domain.Context, key domain.AnalysisKey) (domain.AnalysisResult, error) {
	return s.run(ctx, key, false)
}

// Recompute skips the cache lookup and always stores a fresh analysis.
func (s *AnalyzeService) Recompute(ctx domain.Context, key domain.AnalysisKey) (domain.AnalysisResult, error) {
	return s.run(ctx, key, true)
}

// Cached returns the fresh stored analysis for key without computing. It fails with ErrNotFound on a miss.
func (s *AnalyzeService) Cached(ctx domain.Context, key domain.AnalysisKey) (domain.AnalysisResult, error) {
	if err := key.Validate(); err != nil {
		return domain.AnalysisResult{}, err
	}
	res, ok, err := s.Cache.Lookup(ctx, key)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("op=analyze.Cached: %w", err)
	}
	if !ok {
		obs.RecordAnalysisCache("miss")
		return domain.AnalysisResult{}, fmt.Errorf("op=analyze.Cached: %w: no fresh analysis for %s", domain.ErrNotFound, key)
	}
	obs.RecordAnalysisCache("hit")
	return res, nil
}

func (s *AnalyzeService) run(ctx domain.Context, key domain.AnalysisKey, force bool) (domain.AnalysisResult, error) {
	if err := key.Validate(); err != nil {
		return domain.AnalysisResult{}, err
	}
	ctx, lg := intobs.With(ctx, slog.String("analysis_key", key.String()))

	if !force {
		if res, ok := s.lookup(ctx, lg, key); ok {
			return res, nil
		}
	}

	// Concurrent callers for the same key share one computation. It runs detached
	// from the first caller's cancellation so the others still get a result.
	// Forced recomputes never join a plain Analyze, which may answer from cache.
	flight := key.String()
	if force {
		flight += ":force"
	}
	ch := s.group.DoChan(flight, func() (any, error) {
		cctx := context.WithoutCancel(ctx)
		if force {
			cctx = domain.WithFreshOracle(cctx)
		}
		return s.compute(cctx, lg, key, force)
	})
	select {
	case <-ctx.Done():
		return domain.AnalysisResult{}, fmt.Errorf("op=analyze.Analyze: %w", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return domain.AnalysisResult{}, r.Err
		}
		res, _ := r.Val.(domain.AnalysisResult)
		if r.Shared {
			lg.Debug("analysis shared with concurrent caller")
		}
		return res, nil
	}
}

func (s *AnalyzeService) lookup(ctx domain.Context, lg *slog.Logger, key domain.AnalysisKey) (domain.AnalysisResult, bool) {
	res, ok, err := s.Cache.Lookup(ctx, key)
	switch {
	case err != nil:
		lg.Warn("analysis cache lookup failed, recomputing", slog.Any("error", err))
		obs.RecordAnalysisCache("error")
		return domain.AnalysisResult{}, false
	case ok:
		obs.RecordAnalysisCache("hit")
		return res, true
	default:
		obs.RecordAnalysisCache("miss")
		return domain.AnalysisResult{}, false
	}
}

func (s *AnalyzeService) compute(ctx domain.Context, lg *slog.Logger, key domain.AnalysisKey, force bool) (domain.AnalysisResult, error) {
	if s.Lock != nil {
		release, acquired, err := s.Lock.Acquire(ctx, key.String(), s.LockWait)
		defer release()
		switch {
		case err != nil:
			lg.Warn("inflight lock unavailable, computing without it", slog.Any("error", err))
		case !acquired:
			lg.Warn("inflight lock still held by a peer, computing anyway")
		}
		// A peer may have finished while we waited.
		if !force {
			if res, ok, err := s.Cache.Lookup(ctx, key); err == nil && ok {
				return res, nil
			}
		}
	}

	subject, err := s.load(ctx, lg, key)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	start := time.Now()
	var (
		g                     errgroup.Group
		skills, exp, cultural domain.DimensionResult
		narrative             domain.StrengthsWeaknesses
	)
	g.Go(func() error { skills = s.Skills.Analyze(ctx, subject); return nil })
	g.Go(func() error { exp = s.Experience.Analyze(ctx, subject); return nil })
	g.Go(func() error { cultural = s.Cultural.Analyze(ctx, subject); return nil })
	g.Go(func() error { narrative = s.Narrative.Generate(ctx, subject); return nil })
	_ = g.Wait()

	res := Compose(key, skills, exp, cultural, narrative)
	res.AIModel = s.Model
	res.AnalysisDate = s.Cache.now()

	if err := s.Cache.Store(ctx, res); err != nil {
		lg.Error("failed to store analysis", slog.Any("error", err))
		return domain.AnalysisResult{}, fmt.Errorf("op=analyze.Store: %w", err)
	}
	obs.ObserveAnalysis(res.OverallScore, string(res.Verdict), time.Since(start))
	lg.Info("analysis computed",
		slog.Float64("overall_score", res.OverallScore),
		slog.String("verdict", string(res.Verdict)),
		slog.Int("confidence", res.Confidence),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// load fetches the records for key. Candidate and job are required; a missing company is treated as absent.
func (s *AnalyzeService) load(ctx domain.Context, lg *slog.Logger, key domain.AnalysisKey) (domain.MatchSubject, error) {
	cand, err := s.Candidates.Get(ctx, key.CandidateID)
	if err != nil {
		return domain.MatchSubject{}, fmt.Errorf("op=analyze.load candidate=%d: %w", key.CandidateID, err)
	}
	job, err := s.Jobs.Get(ctx, key.JobID)
	if err != nil {
		return domain.MatchSubject{}, fmt.Errorf("op=analyze.load job=%d: %w", key.JobID, err)
	}
	subject := domain.MatchSubject{Candidate: cand, Job: job}
	if key.CompanyID == 0 || s.Companies == nil {
		return subject, nil
	}
	company, err := s.Companies.Get(ctx, key.CompanyID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		lg.Warn("company not found, analyzing without company context", slog.Int64("company_id", key.CompanyID))
	case err != nil:
		return domain.MatchSubject{}, fmt.Errorf("op=analyze.load company=%d: %w", key.CompanyID, err)
	default:
		subject.Company = &company
	}
	return subject, nil
}

// Compose aggregates dimension results into an AnalysisResult.
func Compose(key domain.AnalysisKey, skills, exp, cultural domain.DimensionResult, narrative domain.StrengthsWeaknesses) domain.AnalysisResult {
	s, e, c := scoring.Clamp01(skills.Score), scoring.Clamp01(exp.Score), scoring.Clamp01(cultural.Score)
	overall := scoring.Overall(s, e, c)
	verdict := scoring.VerdictFor(overall)
	if narrative.Strengths == nil {
		narrative.Strengths = []string{}
	}
	if narrative.Weaknesses == nil {
		narrative.Weaknesses = []string{}
	}
	return domain.AnalysisResult{
		Key:             key,
		OverallScore:    overall,
		SkillsMatch:     s,
		ExperienceMatch: e,
		CulturalFit:     c,
		Verdict:         verdict,
		Confidence:      scoring.Confidence(s, e, c),
		Reasoning:       reasoning(overall, verdict, skills, exp, cultural),
		Strengths:       narrative.Strengths,
		Weaknesses:      narrative.Weaknesses,
	}
}

func reasoning(overall float64, verdict domain.Verdict, skills, exp, cultural domain.DimensionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall score %.2f (%s, %s).", overall, strings.ReplaceAll(string(verdict), "_", " "), scoring.Rating(overall))
	fmt.Fprintf(&b, " Skills match %.2f: %s", skills.Score, sentence(skills.Explanation))
	fmt.Fprintf(&b, " Experience match %.2f: %s", exp.Score, sentence(exp.Explanation))
	fmt.Fprintf(&b, " Cultural fit %.2f: %s", cultural.Score, sentence(cultural.Explanation))
	return b.String()
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "no explanation provided."
	}
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	return s
}
