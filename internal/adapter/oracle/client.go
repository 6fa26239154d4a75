package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ats-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/ats-matcher/internal/config"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
	obsctx "github.com/fairyhunter13/ats-matcher/internal/observability"
)

// Completion parameter bounds.
const (
	MinTemperature   = 0.2
	MaxTemperature   = 0.3
	DefaultMaxTokens = 300
	MaxTokensLimit   = 400
)

const maxResponseBytes = 1 << 20

// Client implements domain.Oracle against an OpenAI-compatible chat completions API.
// It performs exactly one HTTP call per Complete and never retries.
type Client struct {
	baseURL          string
	apiKey           string
	model            string
	hc               *http.Client
	tokens           *TokenCounter
	promptTokenLimit int
}

// New constructs a client from configuration. The HTTP transport is traced with otelhttp.
func New(cfg config.Config) *Client {
	timeout := cfg.OracleTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:          strings.TrimRight(cfg.OracleBaseURL, "/"),
		apiKey:           cfg.OracleAPIKey,
		model:            cfg.OracleModel,
		hc:               &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		tokens:           NewTokenCounter(),
		promptTokenLimit: cfg.OraclePromptTokenLimit,
	}
}

// Model returns the configured model id.
func (c *Client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []chatMessage     `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete performs one JSON-only completion call.
func (c *Client) Complete(ctx domain.Context, req domain.OracleRequest) (domain.OracleResponse, error) {
	tracer := otel.Tracer("oracle")
	ctx, span := tracer.Start(ctx, "oracle.Complete")
	defer span.End()
	lg := obsctx.LoggerFromContext(ctx)

	body := chatRequest{
		Model:          c.model,
		Temperature:    clampTemperature(req.Temperature),
		MaxTokens:      clampMaxTokens(req.MaxTokens),
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemInstruction},
			{Role: "user", Content: req.UserPrompt},
		},
	}
	span.SetAttributes(
		attribute.String("oracle.model", c.model),
		attribute.Float64("oracle.temperature", body.Temperature),
		attribute.Int("oracle.max_tokens", body.MaxTokens),
	)
	c.observePromptSize(lg, req)

	b, err := json.Marshal(body)
	if err != nil {
		return domain.OracleResponse{}, c.fail(span, &Failure{Kind: KindMalformed, Err: err})
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return domain.OracleResponse{}, c.fail(span, &Failure{Kind: KindNetwork, Err: err})
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.hc.Do(httpReq)
	if err != nil {
		f := &Failure{Kind: KindNetwork, Err: err}
		if isTimeout(ctx, err) {
			f.Kind = KindTimeout
		}
		observability.ObserveOracleCall(c.model, string(f.Kind), time.Since(start))
		lg.Warn("oracle call failed", slog.String("kind", string(f.Kind)), slog.Any("error", err))
		return domain.OracleResponse{}, c.fail(span, f)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		observability.ObserveOracleCall(c.model, string(KindNetwork), time.Since(start))
		return domain.OracleResponse{}, c.fail(span, &Failure{Kind: KindNetwork, Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.ObserveOracleCall(c.model, string(KindStatus), time.Since(start))
		lg.Warn("oracle non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", snippet(raw, 512)))
		return domain.OracleResponse{}, c.fail(span, &Failure{Kind: KindStatus, StatusCode: resp.StatusCode})
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		observability.ObserveOracleCall(c.model, string(KindMalformed), time.Since(start))
		return domain.OracleResponse{}, c.fail(span, malformed("decode envelope: %v", err))
	}
	if len(out.Choices) == 0 {
		observability.ObserveOracleCall(c.model, string(KindMalformed), time.Since(start))
		return domain.OracleResponse{}, c.fail(span, malformed("empty choices"))
	}
	obj, err := cleanJSONObject(out.Choices[0].Message.Content)
	if err != nil {
		observability.ObserveOracleCall(c.model, string(KindMalformed), time.Since(start))
		lg.Warn("oracle returned malformed content", slog.String("content", snippet([]byte(out.Choices[0].Message.Content), 256)))
		return domain.OracleResponse{}, c.fail(span, err)
	}
	observability.ObserveOracleCall(c.model, "ok", time.Since(start))

	model := out.Model
	if model == "" {
		model = c.model
	}
	lg.Debug("oracle call ok", slog.String("model", model), slog.Duration("duration", time.Since(start)))
	return domain.OracleResponse{Body: obj, Model: model}, nil
}

func (c *Client) observePromptSize(lg *slog.Logger, req domain.OracleRequest) {
	if c.tokens == nil {
		return
	}
	n, err := c.tokens.CountChat(c.model, req.SystemInstruction, req.UserPrompt)
	if err != nil {
		lg.Debug("token count unavailable", slog.Any("error", err))
		return
	}
	observability.OraclePromptTokens.WithLabelValues(c.model).Observe(float64(n))
	if c.promptTokenLimit > 0 && n > c.promptTokenLimit {
		lg.Warn("oracle prompt exceeds token budget", slog.Int("prompt_tokens", n), slog.Int("limit", c.promptTokenLimit))
	}
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return fmt.Errorf("op=oracle.Complete: %w", err)
}

func clampTemperature(t float64) float64 {
	if t < MinTemperature {
		return MinTemperature
	}
	if t > MaxTemperature {
		return MaxTemperature
	}
	return t
}

func clampMaxTokens(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	if n > MaxTokensLimit {
		return MaxTokensLimit
	}
	return n
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
