package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/ats-matcher/internal/analysis"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

var testOpts = analysis.Options{Temperature: 0.3, MaxRetries: 0, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

type memAnalyses struct {
	mu        sync.Mutex
	rows      map[domain.AnalysisKey]domain.AnalysisResult
	upserts   int
	upsertErr error
	getErr    error
}

func newMemAnalyses() *memAnalyses {
	return &memAnalyses{rows: map[domain.AnalysisKey]domain.AnalysisResult{}}
}

func (m *memAnalyses) Upsert(_ context.Context, r domain.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	m.rows[r.Key] = r
	return nil
}

func (m *memAnalyses) Get(_ context.Context, key domain.AnalysisKey) (domain.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.AnalysisResult{}, m.getErr
	}
	r, ok := m.rows[key]
	if !ok {
		return domain.AnalysisResult{}, fmt.Errorf("op=analysis.get: %w", domain.ErrNotFound)
	}
	return r, nil
}

func (m *memAnalyses) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

type candidates map[int64]domain.CandidateProfile

func (c candidates) Get(_ context.Context, id int64) (domain.CandidateProfile, error) {
	if p, ok := c[id]; ok {
		return p, nil
	}
	return domain.CandidateProfile{}, fmt.Errorf("op=candidate.get: %w", domain.ErrNotFound)
}

type jobs map[int64]domain.JobPosting

func (j jobs) Get(_ context.Context, id int64) (domain.JobPosting, error) {
	if p, ok := j[id]; ok {
		return p, nil
	}
	return domain.JobPosting{}, fmt.Errorf("op=job.get: %w", domain.ErrNotFound)
}

type companies map[int64]domain.CompanyProfile

func (c companies) Get(_ context.Context, id int64) (domain.CompanyProfile, error) {
	if p, ok := c[id]; ok {
		return p, nil
	}
	return domain.CompanyProfile{}, fmt.Errorf("op=company.get: %w", domain.ErrNotFound)
}

// routedOracle answers each prompt kind with a fixed body, or fails the kinds listed in fail.
type routedOracle struct {
	mu      sync.Mutex
	bodies  map[string]string
	fail    map[string]bool
	calls   map[string]int
	prompts []string
	gate    chan struct{}
}

func newRoutedOracle(skills, exp, cultural float64) *routedOracle {
	return &routedOracle{
		bodies: map[string]string{
			"skills":     fmt.Sprintf(`{"score":%v,"explanation":"React and Node overlap"}`, skills),
			"experience": fmt.Sprintf(`{"score":%v,"explanation":"Level is close"}`, exp),
			"cultural":   fmt.Sprintf(`{"score":%v,"explanation":"Same city and hybrid"}`, cultural),
			"strengths":  `{"strengths":["Strong React"],"weaknesses":["No Kubernetes"]}`,
		},
		fail:  map[string]bool{},
		calls: map[string]int{},
	}
}

func kindOf(prompt string) string {
	switch {
	case strings.Contains(prompt, "skills match for the position"):
		return "skills"
	case strings.Contains(prompt, "experience match for the position"):
		return "experience"
	case strings.Contains(prompt, "cultural and workplace fit"):
		return "cultural"
	default:
		return "strengths"
	}
}

func (o *routedOracle) Complete(ctx context.Context, req domain.OracleRequest) (domain.OracleResponse, error) {
	if o.gate != nil {
		select {
		case <-o.gate:
		case <-ctx.Done():
			return domain.OracleResponse{}, ctx.Err()
		}
	}
	kind := kindOf(req.UserPrompt)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[kind]++
	o.prompts = append(o.prompts, req.UserPrompt)
	if o.fail[kind] {
		return domain.OracleResponse{}, errors.New("oracle status (status 503)")
	}
	return domain.OracleResponse{Body: []byte(o.bodies[kind]), Model: "gpt-4o-mini"}, nil
}

func (o *routedOracle) total() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.calls {
		n += c
	}
	return n
}

func (o *routedOracle) allPrompts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.prompts...)
}

func fixture() (candidates, jobs, companies) {
	cands := candidates{7: {
		ID:                   7,
		Skills:               []string{"React", "Node.js"},
		Experience:           "5 years of frontend work",
		Location:             "Berlin",
		RemoteWorkPreference: "hybrid",
	}}
	js := jobs{42: {
		ID:              42,
		Title:           "Frontend Engineer",
		RequiredSkills:  []string{"React.js", "Node"},
		ExperienceLevel: "mid",
		JobType:         "full-time",
		WorkType:        "hybrid",
		Location:        "Berlin",
		CompanyID:       3,
	}}
	return cands, js, companies{3: {ID: 3, Name: "Acme", Industry: "Fintech"}}
}
