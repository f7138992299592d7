// Package pipeline runs chart builds as a linear fetch, transform, render
// sequence. Each stage is an interface; chart definitions supply concrete
// stages and the runner adds logging, metrics, and artifact writes. A stage
// error aborts the run with no output, there is no retry.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hearthline/chartpress/internal/artifact"
	"github.com/hearthline/chartpress/internal/domain"
	"github.com/hearthline/chartpress/internal/observability"
)

// Source fetches the chart's input data.
type Source[T any] interface {
	Fetch(ctx context.Context) (T, error)
}

// Transformer derives render-ready data from fetched input.
type Transformer[T, U any] interface {
	Transform(ctx context.Context, in T) (U, error)
}

// Renderer draws one or more artifacts from transformed data.
type Renderer[U any] interface {
	Render(ctx context.Context, in U) ([]domain.Artifact, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context) (T, error)

func (f SourceFunc[T]) Fetch(ctx context.Context) (T, error) { return f(ctx) }

// TransformerFunc adapts a function to Transformer.
type TransformerFunc[T, U any] func(ctx context.Context, in T) (U, error)

func (f TransformerFunc[T, U]) Transform(ctx context.Context, in T) (U, error) {
	return f(ctx, in)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc[U any] func(ctx context.Context, in U) ([]domain.Artifact, error)

func (f RendererFunc[U]) Render(ctx context.Context, in U) ([]domain.Artifact, error) {
	return f(ctx, in)
}

// Pipeline wires three stages to an artifact store with observability.
type Pipeline[T, U any] struct {
	name        string
	source      Source[T]
	transformer Transformer[T, U]
	renderer    Renderer[U]
	store       artifact.Store
	logger      *slog.Logger
	metrics     *observability.Metrics
}

func New[T, U any](
	name string,
	src Source[T],
	tr Transformer[T, U],
	rd Renderer[U],
	store artifact.Store,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Pipeline[T, U] {
	return &Pipeline[T, U]{
		name:        name,
		source:      src,
		transformer: tr,
		renderer:    rd,
		store:       store,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run executes the stages in order and writes every rendered artifact.
// The first error stops the run; nothing is written after a failure.
func (p *Pipeline[T, U]) Run(ctx context.Context) error {
	logger := p.logger.With("chart", p.name, "run_id", uuid.NewString())
	logger.Info("chart run started")
	runStart := time.Now()

	fetchStart := time.Now()
	in, err := p.source.Fetch(ctx)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		return fmt.Errorf("chart %s: fetch: %w", p.name, err)
	}
	p.metrics.StageDuration.WithLabelValues("fetch").Observe(time.Since(fetchStart).Seconds())

	transformStart := time.Now()
	out, err := p.transformer.Transform(ctx, in)
	if err != nil {
		logger.Error("transform failed", "error", err)
		return fmt.Errorf("chart %s: transform: %w", p.name, err)
	}
	p.metrics.StageDuration.WithLabelValues("transform").Observe(time.Since(transformStart).Seconds())

	renderStart := time.Now()
	artifacts, err := p.renderer.Render(ctx, out)
	if err != nil {
		logger.Error("render failed", "error", err)
		return fmt.Errorf("chart %s: render: %w", p.name, err)
	}
	p.metrics.StageDuration.WithLabelValues("render").Observe(time.Since(renderStart).Seconds())

	writeStart := time.Now()
	for _, a := range artifacts {
		if err := p.store.Put(ctx, a); err != nil {
			logger.Error("artifact write failed", "error", err, "key", a.Key)
			return fmt.Errorf("chart %s: write %s: %w", p.name, a.Key, err)
		}
		p.metrics.ArtifactBytes.Add(float64(len(a.Body)))
		logger.Info("artifact written", "key", a.Key, "bytes", len(a.Body))
	}
	p.metrics.StageDuration.WithLabelValues("write").Observe(time.Since(writeStart).Seconds())

	logger.Info("chart run finished",
		"artifacts", len(artifacts),
		"duration", time.Since(runStart).Round(time.Millisecond).String(),
	)
	return nil
}
