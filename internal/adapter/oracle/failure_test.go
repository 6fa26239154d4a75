package oracle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

func TestFailure_IsAndRetryable(t *testing.T) {
	tests := []struct {
		f         *Failure
		malformed bool
		retryable bool
	}{
		{f: &Failure{Kind: KindNetwork, Err: errors.New("reset")}, retryable: true},
		{f: &Failure{Kind: KindTimeout}, retryable: true},
		{f: &Failure{Kind: KindStatus, StatusCode: 429}, retryable: true},
		{f: &Failure{Kind: KindStatus, StatusCode: 503}, retryable: true},
		{f: &Failure{Kind: KindStatus, StatusCode: 400}},
		{f: &Failure{Kind: KindMalformed}, malformed: true},
		{f: &Failure{Kind: KindUnavailable}},
	}
	for _, tt := range tests {
		t.Run(tt.f.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("op=test: %w", tt.f)
			assert.True(t, errors.Is(wrapped, domain.ErrOracleFailure))
			assert.Equal(t, tt.malformed, errors.Is(wrapped, domain.ErrMalformedResponse))
			assert.False(t, errors.Is(wrapped, domain.ErrNotFound))
			assert.Equal(t, tt.retryable, tt.f.Retryable())
		})
	}
}

func TestFailure_Error(t *testing.T) {
	assert.Equal(t, "oracle status (status 502)", (&Failure{Kind: KindStatus, StatusCode: 502}).Error())
	assert.Equal(t, "oracle network: boom", (&Failure{Kind: KindNetwork, Err: errors.New("boom")}).Error())
	assert.Equal(t, "oracle unavailable", (&Failure{Kind: KindUnavailable}).Error())
}
