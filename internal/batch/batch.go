// Package batch runs the extraction pipeline over a list of images.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/ieltsmeta/internal/extract"
	"github.com/jackzampolin/ieltsmeta/internal/schema"
)

// DefaultConcurrency is the number of items dispatched at once. Inference is
// further bounded by the engine's replica count.
const DefaultConcurrency = 4

// Extractor runs one extraction. *extract.Pipeline implements it.
type Extractor interface {
	Extract(ctx context.Context, ref extract.ImageRef) *extract.Outcome
}

// Item is the result for one image of a batch. RawOutput is set only for
// malformed model output.
type Item struct {
	ImageURL   string                   `json:"image_url"`
	Index      int                      `json:"index"`
	Success    bool                     `json:"success"`
	Metadata   *schema.ExtractionResult `json:"metadata,omitempty"`
	Error      string                   `json:"error,omitempty"`
	ErrorType  extract.FailureKind      `json:"error_type,omitempty"`
	RawOutput  string                   `json:"raw_output,omitempty"`
	Violations []schema.Violation       `json:"violations,omitempty"`
}

// Report is the result of a batch, in input order.
type Report struct {
	TotalImages int    `json:"total_images"`
	Successful  int    `json:"successful"`
	Failed      int    `json:"failed"`
	Results     []Item `json:"results"`
}

// Summarize builds a Report from per-item results. Counts are always derived
// from the items.
func Summarize(items []Item) *Report {
	r := &Report{TotalImages: len(items), Results: items}
	if r.Results == nil {
		r.Results = []Item{}
	}
	for _, it := range items {
		if it.Success {
			r.Successful++
		} else {
			r.Failed++
		}
	}
	return r
}

// Config configures a Coordinator.
type Config struct {
	Extractor   Extractor
	Concurrency int
	Logger      *slog.Logger
}

// Coordinator fans a batch out to the extractor.
type Coordinator struct {
	extractor   Extractor
	concurrency int
	logger      *slog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		extractor:   cfg.Extractor,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger.With("component", "batch"),
	}, nil
}

// Run extracts every reference and returns one item per input, in input
// order. A failing or panicking item never affects the others.
func (c *Coordinator) Run(ctx context.Context, refs []extract.ImageRef) *Report {
	start := time.Now()
	items := make([]Item, len(refs))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			items[i] = c.runOne(ctx, i, ref)
			return nil
		})
	}
	g.Wait()

	report := Summarize(items)
	c.logger.Info("batch complete",
		"total", report.TotalImages,
		"successful", report.Successful,
		"failed", report.Failed,
		"duration", time.Since(start))
	return report
}

func (c *Coordinator) runOne(ctx context.Context, index int, ref extract.ImageRef) (item Item) {
	item = Item{ImageURL: ref.String(), Index: index}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("extraction panicked", "index", index, "image", ref.String(), "panic", r, "stack", string(debug.Stack()))
			item = Item{
				ImageURL:  ref.String(),
				Index:     index,
				Error:     fmt.Sprintf("internal error: %v", r),
				ErrorType: extract.ModelError,
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		item.Error = err.Error()
		item.ErrorType = extract.Timeout
		return item
	}

	out := c.extractor.Extract(ctx, ref)
	if out.Success() {
		item.Success = true
		item.Metadata = out.Result
		item.Violations = out.Violations
		return item
	}

	if out.Failure == nil {
		item.Error = "extraction produced no metadata"
		item.ErrorType = extract.MalformedOutput
		return item
	}
	item.Error = out.Failure.Error()
	item.ErrorType = out.Failure.Kind
	item.RawOutput = out.Failure.RawOutput
	return item
}
