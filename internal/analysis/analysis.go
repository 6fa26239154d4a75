// Package analysis turns candidate and job records into oracle prompts and
// parses the oracle's replies into dimension scores and narrative lists.
//
// Nothing in this package returns an error to its caller: any oracle failure,
// timeout, malformed reply or unusable input degrades to a documented fallback.
package analysis

import (
	"errors"
	"sort"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/ats-matcher/internal/config"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
	"github.com/fairyhunter13/ats-matcher/pkg/textx"
)

// Options tune the oracle calls made by analyzers.
type Options struct {
	Temperature     float64
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultOptions are used when an analyzer is built with a zero Options.
var DefaultOptions = Options{
	Temperature:     0.3,
	MaxRetries:      1,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// OptionsFromConfig derives analyzer options from configuration.
func OptionsFromConfig(cfg config.Config) Options {
	retries, initial, maxInterval := cfg.GetOracleBackoffConfig()
	return Options{
		Temperature:     cfg.OracleTemperature,
		MaxRetries:      retries,
		InitialInterval: initial,
		MaxInterval:     maxInterval,
	}
}

func (o Options) withDefaults() Options {
	if o.Temperature == 0 {
		o.Temperature = DefaultOptions.Temperature
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = DefaultOptions.InitialInterval
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = DefaultOptions.MaxInterval
	}
	return o
}

// retryable is implemented by oracle failures that may succeed on another attempt.
type retryable interface{ Retryable() bool }

// complete calls the oracle and hands the body to parse, retrying transient
// oracle failures. Parse errors and non-transient failures stop immediately;
// a body that parse rejects is dropped from any response cache in o.
func complete(ctx domain.Context, o domain.Oracle, req domain.OracleRequest, opts Options, parse func([]byte) error) (string, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = opts.InitialInterval
	expo.MaxInterval = opts.MaxInterval
	bo := backoff.WithContext(backoff.WithMaxRetries(expo, opts.MaxRetries), ctx)

	var model string
	op := func() error {
		resp, err := o.Complete(ctx, req)
		if err != nil {
			var r retryable
			if errors.As(err, &r) && !r.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		if err := parse(resp.Body); err != nil {
			if r, ok := o.(domain.ResponseRejecter); ok {
				r.Reject(req)
			}
			return backoff.Permanent(err)
		}
		model = resp.Model
		return nil
	}
	if err := backoff.Retry(op, bo); err != nil {
		return "", err
	}
	return model, nil
}

// maxFieldRunes bounds any single free-text field placed in a prompt.
const maxFieldRunes = 4000

// clean sanitizes a single field.
func clean(s string) string { return textx.Clip(textx.SanitizeText(s), maxFieldRunes) }

// cleanList sanitizes items, drops blanks, and removes case-insensitive duplicates keeping first occurrence.
func cleanList(items []string) []string { return textx.Dedupe(items) }

// cleanSet is cleanList with a stable alphabetical order, for inputs whose order carries no meaning.
func cleanSet(items []string) []string {
	out := cleanList(items)
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}
