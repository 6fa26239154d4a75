package analysis

import (
	"encoding/json"
	"fmt"
	"log/slog"

	obs "github.com/fairyhunter13/ats-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
	intobs "github.com/fairyhunter13/ats-matcher/internal/observability"
)

const (
	MinStrengths  = 3
	MaxStrengths  = 5
	MinWeaknesses = 2
	MaxWeaknesses = 3

	strengthsMaxTokens = 400
)

// Generator produces the strengths and weaknesses narrative for a pair.
type Generator struct {
	oracle domain.Oracle
	opts   Options
}

// NewGenerator builds a Generator.
func NewGenerator(o domain.Oracle, opts Options) *Generator {
	return &Generator{oracle: o, opts: opts.withDefaults()}
}

// Empty is the narrative used when generation fails.
func Empty() domain.StrengthsWeaknesses {
	return domain.StrengthsWeaknesses{Strengths: []string{}, Weaknesses: []string{}}
}

// Generate never fails. On oracle failure it returns empty lists.
func (g *Generator) Generate(ctx domain.Context, s domain.MatchSubject) domain.StrengthsWeaknesses {
	lg := intobs.LoggerFromContext(ctx).With(
		slog.String("dimension", "strengths_weaknesses"),
		slog.Int64("candidate_id", s.Candidate.ID),
		slog.Int64("job_id", s.Job.ID),
	)

	in := strengthsInput{
		Skills:          cleanSet(s.Candidate.Skills),
		Experience:      clean(s.Candidate.Experience),
		Location:        clean(s.Candidate.Location),
		RequiredSkills:  cleanList(s.Job.RequiredSkills),
		ExperienceLevel: clean(s.Job.ExperienceLevel),
		JobType:         clean(s.Job.JobType),
	}
	if len(in.Skills) == 0 && len(in.RequiredSkills) == 0 && in.Experience == "" {
		lg.Warn("nothing to compare, skipping strengths and weaknesses")
		return Empty()
	}

	var reply struct {
		Strengths  []string `json:"strengths"`
		Weaknesses []string `json:"weaknesses"`
	}
	req := domain.OracleRequest{
		SystemInstruction: strengthsSystemInstruction,
		UserPrompt:        strengthsPrompt(in),
		MaxTokens:         strengthsMaxTokens,
		Temperature:       g.opts.Temperature,
	}
	_, err := complete(ctx, g.oracle, req, g.opts, func(body []byte) error {
		if err := validateBody(strengthsSchema, body); err != nil {
			return err
		}
		if err := json.Unmarshal(body, &reply); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
		}
		return nil
	})
	if err != nil {
		lg.Error("strengths generation failed, using empty lists", slog.Any("error", err))
		obs.RecordFallback("strengths_weaknesses")
		return Empty()
	}

	return domain.StrengthsWeaknesses{
		Strengths:  truncate(cleanList(reply.Strengths), MaxStrengths),
		Weaknesses: truncate(cleanList(reply.Weaknesses), MaxWeaknesses),
	}
}

func truncate(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
