package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

func notFoundOr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("op=%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("op=%s: %w", op, err)
}

// CandidateRepo loads candidate profiles.
type CandidateRepo struct{ Pool PgxPool }

// NewCandidateRepo constructs a CandidateRepo with the given pool.
func NewCandidateRepo(p PgxPool) *CandidateRepo { return &CandidateRepo{Pool: p} }

// Get loads a candidate by id.
func (r *CandidateRepo) Get(ctx domain.Context, id int64) (domain.CandidateProfile, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.Get")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.Int64("candidate.id", id))

	q := `SELECT id, name, email, skills, experience, location, remote_work_preference FROM candidates WHERE id=$1`
	var c domain.CandidateProfile
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Name, &c.Email, &c.Skills, &c.Experience, &c.Location, &c.RemoteWorkPreference); err != nil {
		span.RecordError(err)
		return domain.CandidateProfile{}, notFoundOr("candidate.get", err)
	}
	return c, nil
}

// JobRepo loads job postings.
type JobRepo struct{ Pool PgxPool }

// NewJobRepo constructs a JobRepo with the given pool.
func NewJobRepo(p PgxPool) *JobRepo { return &JobRepo{Pool: p} }

// Get loads a job by id. A job without a company has CompanyID 0.
func (r *JobRepo) Get(ctx domain.Context, id int64) (domain.JobPosting, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Get")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.Int64("job.id", id))

	q := `SELECT id, title, required_skills, experience_level, job_type, work_type, location, COALESCE(company_id, 0) FROM jobs WHERE id=$1`
	var j domain.JobPosting
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&j.ID, &j.Title, &j.RequiredSkills, &j.ExperienceLevel, &j.JobType, &j.WorkType, &j.Location, &j.CompanyID); err != nil {
		span.RecordError(err)
		return domain.JobPosting{}, notFoundOr("job.get", err)
	}
	return j, nil
}

// CompanyRepo loads company profiles.
type CompanyRepo struct{ Pool PgxPool }

// NewCompanyRepo constructs a CompanyRepo with the given pool.
func NewCompanyRepo(p PgxPool) *CompanyRepo { return &CompanyRepo{Pool: p} }

// Get loads a company by id.
func (r *CompanyRepo) Get(ctx domain.Context, id int64) (domain.CompanyProfile, error) {
	tracer := otel.Tracer("repo.companies")
	ctx, span := tracer.Start(ctx, "companies.Get")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.Int64("company.id", id))

	q := `SELECT id, name, industry FROM companies WHERE id=$1`
	var c domain.CompanyProfile
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Name, &c.Industry); err != nil {
		span.RecordError(err)
		return domain.CompanyProfile{}, notFoundOr("company.get", err)
	}
	return c, nil
}
