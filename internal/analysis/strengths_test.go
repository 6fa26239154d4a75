package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

func TestGenerator_TruncatesLists(t *testing.T) {
	o := &scriptedOracle{replies: []func() (domain.OracleResponse, error){body(`{
		"strengths": ["React", "Node", "Testing", "Mentoring", "APIs", "Docs", "react"],
		"weaknesses": ["No Kubernetes", "", "No Go", "No Rust", "No Java"]
	}`)}}

	got := NewGenerator(o, fastOpts).Generate(context.Background(), subject())
	assert.Equal(t, []string{"React", "Node", "Testing", "Mentoring", "APIs"}, got.Strengths)
	assert.Equal(t, []string{"No Kubernetes", "No Go", "No Rust"}, got.Weaknesses)

	require.Len(t, o.reqs, 1)
	assert.Equal(t, strengthsMaxTokens, o.reqs[0].MaxTokens)
	assert.Contains(t, o.reqs[0].UserPrompt, "Required skills: React.js, Node")
}

func TestGenerator_FailureYieldsEmptyLists(t *testing.T) {
	for _, reply := range []func() (domain.OracleResponse, error){
		failWith(retryErr{retry: false}),
		body(`{"strengths": "many"}`),
	} {
		o := &scriptedOracle{replies: []func() (domain.OracleResponse, error){reply}}
		got := NewGenerator(o, fastOpts).Generate(context.Background(), subject())
		assert.NotNil(t, got.Strengths)
		assert.NotNil(t, got.Weaknesses)
		assert.Empty(t, got.Strengths)
		assert.Empty(t, got.Weaknesses)
	}
}

func TestGenerator_NothingToCompare(t *testing.T) {
	o := &scriptedOracle{}
	got := NewGenerator(o, fastOpts).Generate(context.Background(), domain.MatchSubject{})
	assert.Equal(t, Empty(), got)
	assert.Empty(t, o.reqs)
}

func TestStrengthsPrompt_AsksForListRanges(t *testing.T) {
	p := strengthsPrompt(strengthsInput{Skills: []string{"Go"}, RequiredSkills: []string{"Go"}})
	assert.Contains(t, p, "Give 3 to 5 strengths and 2 to 3 weaknesses")
}
