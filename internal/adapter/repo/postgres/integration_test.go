//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fairyhunter13/ats-matcher/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "app"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(90 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return "postgres://postgres:postgres@" + host + ":" + port.Port() + "/app?sslmode=disable"
}

func TestIntegration_AnalysisUpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, startPostgres(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.Eventually(t, func() bool { return pool.Ping(ctx) == nil }, 30*time.Second, time.Second)

	require.NoError(t, postgres.Migrate(ctx, pool))
	require.NoError(t, postgres.Migrate(ctx, pool), "migrations must be re-runnable")

	_, err = pool.Exec(ctx, `INSERT INTO companies (id, name, industry) VALUES (3, 'Acme', 'Fintech')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO candidates (id, name, skills, experience, location, remote_work_preference)
		VALUES (7, 'Ada', ARRAY['React','Node.js'], '5 years', 'Berlin', 'hybrid')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO jobs (id, title, required_skills, experience_level, job_type, work_type, location, company_id)
		VALUES (42, 'Frontend Engineer', ARRAY['React.js','Node'], 'mid', 'full-time', 'hybrid', 'Berlin', 3)`)
	require.NoError(t, err)

	cand, err := postgres.NewCandidateRepo(pool).Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"React", "Node.js"}, cand.Skills)
	job, err := postgres.NewJobRepo(pool).Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(3), job.CompanyID)
	_, err = postgres.NewCompanyRepo(pool).Get(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	repo := postgres.NewAnalysisRepo(pool)
	key := domain.AnalysisKey{CandidateID: 7, JobID: 42, CompanyID: 3}
	first := domain.AnalysisResult{
		Key: key, OverallScore: 0.5, SkillsMatch: 0.5, ExperienceMatch: 0.5, CulturalFit: 0.5,
		Verdict: domain.VerdictConsider, Confidence: 60, Reasoning: "first",
		Strengths: []string{}, Weaknesses: []string{}, AIModel: "m", AnalysisDate: time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Upsert(ctx, first))

	second := first
	second.OverallScore, second.Verdict, second.Confidence, second.Reasoning = 0.77, domain.VerdictRecommended, 76, "second"
	second.Strengths, second.Weaknesses = []string{"React", "Node"}, []string{"No Kubernetes"}
	second.AnalysisDate = time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Upsert(ctx, second))

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM candidate_job_analyses`).Scan(&rows))
	assert.Equal(t, 1, rows)

	got, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, second.AnalysisDate.Equal(got.AnalysisDate))
	got.AnalysisDate = second.AnalysisDate
	assert.Equal(t, second, got)

	svc := postgres.NewCleanupService(pool, 1)
	n, err := svc.CleanupOldData(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
