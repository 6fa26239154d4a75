package analysis

import (
	"encoding/json"
	"fmt"
	"log/slog"

	obs "github.com/fairyhunter13/ats-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
	intobs "github.com/fairyhunter13/ats-matcher/internal/observability"
	"github.com/fairyhunter13/ats-matcher/internal/scoring"
)

// Dimension names one evaluation axis.
type Dimension string

const (
	DimensionSkills     Dimension = "skills"
	DimensionExperience Dimension = "experience"
	DimensionCultural   Dimension = "cultural_fit"
)

// label is the human-readable name used in fallback explanations.
func (d Dimension) label() string {
	switch d {
	case DimensionSkills:
		return "skills match"
	case DimensionExperience:
		return "experience match"
	case DimensionCultural:
		return "cultural fit"
	default:
		return string(d)
	}
}

// dimensionMaxTokens bounds a score-and-explanation reply.
const dimensionMaxTokens = 300

// FallbackScore is the neutral score substituted when a dimension cannot be analyzed.
const FallbackScore = 0.5

// Fallback is the result for a dimension whose oracle call failed.
func Fallback(d Dimension) domain.DimensionResult {
	return domain.DimensionResult{
		Score:       FallbackScore,
		Explanation: fmt.Sprintf("Unable to analyze %s due to AI service error", d.label()),
	}
}

func missingInput(d Dimension, field string) domain.DimensionResult {
	return domain.DimensionResult{
		Score:       FallbackScore,
		Explanation: fmt.Sprintf("Unable to analyze %s due to missing %s", d.label(), field),
	}
}

// promptPlan is what a dimension derives from a subject before calling the oracle.
// A non-empty missing names the first required input that was blank.
type promptPlan struct {
	system  string
	user    string
	missing string
}

// Analyzer scores one dimension of a candidate/job pair.
type Analyzer struct {
	dim    Dimension
	oracle domain.Oracle
	opts   Options
	build  func(domain.MatchSubject) promptPlan
}

// NewSkillsAnalyzer compares candidate skills against the job's required skills.
func NewSkillsAnalyzer(o domain.Oracle, opts Options) *Analyzer {
	return &Analyzer{dim: DimensionSkills, oracle: o, opts: opts.withDefaults(), build: buildSkills}
}

// NewExperienceAnalyzer compares candidate experience against the job's level.
func NewExperienceAnalyzer(o domain.Oracle, opts Options) *Analyzer {
	return &Analyzer{dim: DimensionExperience, oracle: o, opts: opts.withDefaults(), build: buildExperience}
}

// NewCulturalFitAnalyzer evaluates location, work arrangement and company context.
func NewCulturalFitAnalyzer(o domain.Oracle, opts Options) *Analyzer {
	return &Analyzer{dim: DimensionCultural, oracle: o, opts: opts.withDefaults(), build: buildCultural}
}

// Dimension reports which axis the analyzer scores.
func (a *Analyzer) Dimension() Dimension { return a.dim }

// Analyze always returns a result. Failures degrade to Fallback and are logged.
func (a *Analyzer) Analyze(ctx domain.Context, s domain.MatchSubject) domain.DimensionResult {
	lg := intobs.LoggerFromContext(ctx).With(
		slog.String("dimension", string(a.dim)),
		slog.Int64("candidate_id", s.Candidate.ID),
		slog.Int64("job_id", s.Job.ID),
	)

	p := a.build(s)
	if p.missing != "" {
		lg.Warn("dimension input missing, using neutral score", slog.String("field", p.missing))
		obs.RecordFallback(string(a.dim))
		return missingInput(a.dim, p.missing)
	}

	var reply struct {
		Score       float64 `json:"score"`
		Explanation string  `json:"explanation"`
	}
	req := domain.OracleRequest{
		SystemInstruction: p.system,
		UserPrompt:        p.user,
		MaxTokens:         dimensionMaxTokens,
		Temperature:       a.opts.Temperature,
	}
	_, err := complete(ctx, a.oracle, req, a.opts, func(body []byte) error {
		if err := validateBody(dimensionSchema, body); err != nil {
			return err
		}
		if err := json.Unmarshal(body, &reply); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
		}
		reply.Explanation = clean(reply.Explanation)
		if reply.Explanation == "" {
			return fmt.Errorf("%w: empty explanation", domain.ErrMalformedResponse)
		}
		return nil
	})
	if err != nil {
		lg.Error("dimension analysis failed, using fallback", slog.Any("error", err))
		obs.RecordFallback(string(a.dim))
		return Fallback(a.dim)
	}

	score := scoring.Clamp01(reply.Score)
	if score != reply.Score {
		lg.Warn("oracle score out of range, clamped", slog.Float64("raw", reply.Score), slog.Float64("score", score))
	}
	return domain.DimensionResult{Score: score, Explanation: reply.Explanation}
}

func buildSkills(s domain.MatchSubject) promptPlan {
	candidate := cleanSet(s.Candidate.Skills)
	job := cleanList(s.Job.RequiredSkills)
	title := clean(s.Job.Title)
	switch {
	case len(candidate) == 0:
		return promptPlan{missing: "candidate skills"}
	case len(job) == 0:
		return promptPlan{missing: "job skills"}
	case title == "":
		return promptPlan{missing: "job title"}
	}
	return promptPlan{system: skillsSystemInstruction, user: skillsPrompt(candidate, job, title)}
}

func buildExperience(s domain.MatchSubject) promptPlan {
	exp := clean(s.Candidate.Experience)
	level := clean(s.Job.ExperienceLevel)
	title := clean(s.Job.Title)
	switch {
	case exp == "":
		return promptPlan{missing: "candidate experience"}
	case level == "":
		return promptPlan{missing: "job experience level"}
	case title == "":
		return promptPlan{missing: "job title"}
	}
	return promptPlan{system: experienceSystemInstruction, user: experiencePrompt(exp, level, title)}
}

func buildCultural(s domain.MatchSubject) promptPlan {
	in := culturalInput{
		CandidateLocation: clean(s.Candidate.Location),
		RemotePreference:  clean(s.Candidate.RemoteWorkPreference),
		Experience:        clean(s.Candidate.Experience),
		Skills:            cleanSet(s.Candidate.Skills),
		JobTitle:          clean(s.Job.Title),
		JobType:           clean(s.Job.JobType),
		WorkType:          clean(s.Job.WorkType),
		JobLocation:       clean(s.Job.Location),
	}
	if s.Company != nil {
		in.CompanyName = clean(s.Company.Name)
		if in.CompanyName != "" {
			in.CompanyIndustry = clean(s.Company.Industry)
		}
	}
	required := []struct{ field, value string }{
		{"candidate location", in.CandidateLocation},
		{"candidate remote work preference", in.RemotePreference},
		{"candidate experience", in.Experience},
		{"job title", in.JobTitle},
		{"job type", in.JobType},
		{"job work type", in.WorkType},
		{"job location", in.JobLocation},
	}
	for _, r := range required {
		if r.value == "" {
			return promptPlan{missing: r.field}
		}
	}
	if len(in.Skills) == 0 {
		return promptPlan{missing: "candidate skills"}
	}
	return promptPlan{system: culturalSystemInstruction, user: culturalPrompt(in)}
}
