// Package extract turns one IELTS Task 1 image into validated metadata.
//
// A Pipeline checks the image reference, runs a single inference through the
// engine with the task1 prompts, recovers the JSON document from the model's
// text and validates it against the schema registry. Every call produces an
// Outcome; failures are classified rather than returned as bare errors.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/ieltsmeta/internal/images"
	"github.com/jackzampolin/ieltsmeta/internal/llmcall"
	"github.com/jackzampolin/ieltsmeta/internal/prompts/task1"
	"github.com/jackzampolin/ieltsmeta/internal/providers"
	"github.com/jackzampolin/ieltsmeta/internal/schema"
)

// DefaultMaxTokens bounds the model's answer.
const DefaultMaxTokens = 2048

// Chatter runs one inference. *inference.Engine implements it.
type Chatter interface {
	Chat(ctx context.Context, req *providers.ChatRequest, opts llmcall.RecordOptions) (*providers.ChatResult, error)
}

// Outcome is the result of one extraction.
type Outcome struct {
	Ref        ImageRef
	RequestID  string
	Result     *schema.ExtractionResult
	Violations []schema.Violation
	Failure    *Failure
	RawOutput  string
	Duration   time.Duration
}

// Success reports whether metadata was produced.
func (o *Outcome) Success() bool {
	return o.Failure == nil && o.Result != nil
}

// Config configures a Pipeline.
type Config struct {
	Engine  Chatter
	Schema  *schema.Registry
	Fetcher *images.Fetcher // required when InlineRemote is set
	Logger  *slog.Logger

	// Timeout bounds each extraction (0 = caller's context only).
	Timeout time.Duration

	// InlineRemote downloads URL images and sends them as data URIs instead
	// of passing the URL to the provider.
	InlineRemote bool

	MaxImageBytes  int
	MaxImagePixels int
	MaxTokens      int
	Temperature    float64

	// Model overrides the provider's configured model when set.
	Model string
}

// Pipeline runs extractions. It is safe for concurrent use.
type Pipeline struct {
	engine       Chatter
	schema       *schema.Registry
	fetcher      *images.Fetcher
	logger       *slog.Logger
	timeout      time.Duration
	inlineRemote bool
	maxBytes     int
	maxPixels    int
	maxTokens    int
	temperature  float64
	model        string

	systemPrompt string
	userPrompt   string
	promptHash   string
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Schema == nil {
		return nil, fmt.Errorf("schema registry is required")
	}
	if cfg.InlineRemote && cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required when inline_remote is enabled")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = images.DefaultMaxBytes
	}
	if cfg.MaxImagePixels <= 0 {
		cfg.MaxImagePixels = images.DefaultMaxPixels
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	prompt := task1.Prompt()
	return &Pipeline{
		engine:       cfg.Engine,
		schema:       cfg.Schema,
		fetcher:      cfg.Fetcher,
		logger:       cfg.Logger.With("component", "extract"),
		timeout:      cfg.Timeout,
		inlineRemote: cfg.InlineRemote,
		maxBytes:     cfg.MaxImageBytes,
		maxPixels:    cfg.MaxImagePixels,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		model:        cfg.Model,
		systemPrompt: prompt.Text,
		userPrompt:   task1.UserPrompt(),
		promptHash:   prompt.Hash,
	}, nil
}

// Extract runs one extraction. It never returns nil.
func (p *Pipeline) Extract(ctx context.Context, ref ImageRef) *Outcome {
	start := time.Now()
	out := &Outcome{Ref: ref, RequestID: uuid.New().String()}
	logger := p.logger.With("request_id", out.RequestID, "image", ref.String())

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	defer func() {
		out.Duration = time.Since(start)
		if out.Failure != nil {
			logger.Warn("extraction failed",
				"error_type", out.Failure.Kind,
				"error", out.Failure.Error(),
				"duration", out.Duration)
			return
		}
		logger.Info("extraction complete",
			"visual_category", out.Result.TaskVisualCategory,
			"violations", len(out.Violations),
			"duration", out.Duration)
	}()

	msg, fail := p.userMessage(ctx, ref)
	if fail != nil {
		out.Failure = fail
		return out
	}

	temperature := p.temperature
	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: p.systemPrompt},
			msg,
		},
		Model:          p.model,
		Temperature:    temperature,
		MaxTokens:      p.maxTokens,
		ResponseFormat: &providers.ResponseFormat{Type: providers.ResponseFormatJSONObject},
		RequestID:      out.RequestID,
	}

	result, err := p.engine.Chat(ctx, req, llmcall.RecordOptions{
		RequestID:     out.RequestID,
		ImageRef:      ref.String(),
		PromptKey:     task1.SystemPromptKey,
		PromptHash:    p.promptHash,
		SchemaVersion: p.schema.Version(),
		Temperature:   &temperature,
	})
	if err != nil {
		out.Failure = classifyModelError(ctx, err)
		return out
	}

	out.RawOutput = result.Content
	out.Result, out.Violations, out.Failure = p.decode(result.Content)
	return out
}

// userMessage builds the user turn carrying the image.
func (p *Pipeline) userMessage(ctx context.Context, ref ImageRef) (providers.Message, *Failure) {
	msg := providers.Message{Role: "user", Content: p.userPrompt}

	if !ref.IsURL() {
		if _, err := images.Inspect(ref.Data(), p.maxBytes, p.maxPixels); err != nil {
			return msg, newFailure(MalformedInput, "uploaded file is not a valid image", err)
		}
		msg.Images = [][]byte{ref.Data()}
		return msg, nil
	}

	u, err := images.ValidateURL(ref.URL())
	if err != nil {
		return msg, newFailure(MalformedInput, "invalid image URL", err)
	}
	if !p.inlineRemote {
		msg.ImageURLs = []string{u.String()}
		return msg, nil
	}

	data, err := p.fetcher.Fetch(ctx, u.String())
	if err != nil {
		return msg, classifyFetchError(ctx, err)
	}
	if _, err := images.Inspect(data, p.maxBytes, p.maxPixels); err != nil {
		return msg, newFailure(MalformedInput, "image URL does not point to a valid image", err)
	}
	msg.Images = [][]byte{data}
	return msg, nil
}

// decode parses and validates the model's text. Only text that is not a
// JSON object fails; schema deviations are returned as violations.
func (p *Pipeline) decode(content string) (*schema.ExtractionResult, []schema.Violation, *Failure) {
	raw, err := parseModelOutput(content)
	if err != nil {
		return nil, nil, p.malformed(content, "model output is not valid JSON", err)
	}

	outcome, err := p.schema.Validate(raw)
	if err != nil {
		return nil, nil, p.malformed(content, "model output is not a JSON object", err)
	}
	return outcome.Result, outcome.Violations, nil
}

func (p *Pipeline) malformed(content, msg string, err error) *Failure {
	f := newFailure(MalformedOutput, msg, err)
	f.RawOutput = content
	return f
}

func classifyModelError(ctx context.Context, err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newFailure(Timeout, "inference timed out", err)
	}
	return newFailure(ModelError, "inference failed", err)
}

func classifyFetchError(ctx context.Context, err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newFailure(Timeout, "image download timed out", err)
	}

	var serr *images.StatusError
	switch {
	case errors.Is(err, images.ErrInvalidURL), errors.Is(err, images.ErrTooLarge):
		return newFailure(MalformedInput, "image could not be downloaded", err)
	case errors.As(err, &serr) && serr.StatusCode >= 400 && serr.StatusCode < 500 &&
		serr.StatusCode != http.StatusRequestTimeout && serr.StatusCode != http.StatusTooManyRequests:
		return newFailure(MalformedInput, "image could not be downloaded", err)
	}
	return newFailure(ModelError, "image download failed", err)
}

// MarshalMetadata encodes a successful outcome's metadata.
func (o *Outcome) MarshalMetadata() (json.RawMessage, error) {
	if !o.Success() {
		return nil, fmt.Errorf("outcome has no metadata")
	}
	return json.Marshal(o.Result)
}
