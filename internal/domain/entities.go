package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrOracleFailure     = errors.New("oracle failure")
	ErrMalformedResponse = errors.New("malformed oracle response")
)

// CandidateProfile is the read-only candidate view consumed by the analyzers.
type CandidateProfile struct {
	ID                   int64
	Name                 string
	Email                string
	Skills               []string
	Experience           string
	Location             string
	RemoteWorkPreference string
}

// JobPosting is the read-only job view consumed by the analyzers.
type JobPosting struct {
	ID              int64
	Title           string
	RequiredSkills  []string // ordered as listed on the posting
	ExperienceLevel string
	JobType         string
	WorkType        string
	Location        string
	CompanyID       int64
}

// CompanyProfile is optional context for cultural fit.
type CompanyProfile struct {
	ID       int64
	Name     string
	Industry string
}

// MatchSubject bundles the loaded records for one analysis. Company is nil when absent.
type MatchSubject struct {
	Candidate CandidateProfile
	Job       JobPosting
	Company   *CompanyProfile
}

// DimensionResult is one axis of the evaluation.
// Invariants: Score in [0,1]; Explanation non-empty.
type DimensionResult struct {
	Score       float64
	Explanation string
}

// StrengthsWeaknesses is supplementary narrative; at most 5 strengths and 3 weaknesses.
type StrengthsWeaknesses struct {
	Strengths  []string
	Weaknesses []string
}

// Verdict is the categorical hiring recommendation.
type Verdict string

const (
	VerdictHighlyRecommended Verdict = "highly_recommended"
	VerdictRecommended       Verdict = "recommended"
	VerdictConsider          Verdict = "consider"
	VerdictNotRecommended    Verdict = "not_recommended"
)

// AnalysisKey uniquely identifies a cached analysis. CompanyID 0 means no company.
type AnalysisKey struct {
	CandidateID int64
	JobID       int64
	CompanyID   int64
}

// Validate checks the key ids are usable.
func (k AnalysisKey) Validate() error {
	if k.CandidateID <= 0 {
		return fmt.Errorf("%w: candidate_id must be positive", ErrInvalidArgument)
	}
	if k.JobID <= 0 {
		return fmt.Errorf("%w: job_id must be positive", ErrInvalidArgument)
	}
	if k.CompanyID < 0 {
		return fmt.Errorf("%w: company_id must not be negative", ErrInvalidArgument)
	}
	return nil
}

func (k AnalysisKey) String() string {
	return fmt.Sprintf("%d:%d:%d", k.CandidateID, k.JobID, k.CompanyID)
}

// AnalysisResult is the cached artifact, keyed by AnalysisKey.
// Invariants: scores in [0,1]; Confidence in [60,95]; AnalysisDate is UTC.
type AnalysisResult struct {
	Key             AnalysisKey
	OverallScore    float64
	SkillsMatch     float64
	ExperienceMatch float64
	CulturalFit     float64
	Verdict         Verdict
	Confidence      int
	Reasoning       string
	Strengths       []string
	Weaknesses      []string
	AIModel         string
	AnalysisDate    time.Time
}

// Repositories (ports)

type CandidateRepository interface {
	Get(ctx Context, id int64) (CandidateProfile, error)
}

type JobRepository interface {
	Get(ctx Context, id int64) (JobPosting, error)
}

type CompanyRepository interface {
	Get(ctx Context, id int64) (CompanyProfile, error)
}

type AnalysisRepository interface {
	Upsert(ctx Context, r AnalysisResult) error
	Get(ctx Context, key AnalysisKey) (AnalysisResult, error)
}

// Oracle (port)

// OracleRequest is a single completion call. Content of the response must be a JSON object.
type OracleRequest struct {
	SystemInstruction string
	UserPrompt        string
	MaxTokens         int
	Temperature       float64
}

// OracleResponse carries the cleaned JSON object body and the model that produced it.
type OracleResponse struct {
	Body  []byte
	Model string
}

// Oracle performs one completion call without retrying.
// Every failure matches errors.Is(err, ErrOracleFailure).
type Oracle interface {
	Complete(ctx Context, req OracleRequest) (OracleResponse, error)
}

// ResponseRejecter is implemented by oracles that memoize responses. Reject
// drops the memoized response for req after the caller found it unusable.
type ResponseRejecter interface {
	Reject(req OracleRequest)
}

type freshOracleKey struct{}

// WithFreshOracle marks ctx so memoizing oracles skip their cache and ask upstream.
func WithFreshOracle(ctx Context) Context {
	return context.WithValue(ctx, freshOracleKey{}, true)
}

// FreshOracle reports whether ctx was marked by WithFreshOracle.
func FreshOracle(ctx Context) bool {
	v, _ := ctx.Value(freshOracleKey{}).(bool)
	return v
}

// Context is an alias to allow decoupling from std context in domain
type Context = context.Context
