package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/huangsam/ceflow/core"

// Step is one unit of work of the pipeline.
type Step interface {
	Description() string
	Execute(ctx context.Context, rc *repo.RunContext) error
}

// Pipeline runs steps strictly in order and stops at the first error.
type Pipeline struct {
	steps  []Step
	tracer trace.Tracer

	stepLatency   metric.Float64Histogram
	stepSuccesses metric.Int64Counter
	stepFailures  metric.Int64Counter
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider sets the provider used for step spans.
func WithTracerProvider(tp trace.TracerProvider) PipelineOption {
	return func(o *pipelineOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the provider used for step metrics.
func WithMeterProvider(mp metric.MeterProvider) PipelineOption {
	return func(o *pipelineOptions) { o.meterProvider = mp }
}

// NewPipeline returns a pipeline over steps. It uses the global OpenTelemetry providers by default.
func NewPipeline(steps []Step, opts ...PipelineOption) (*Pipeline, error) {
	o := pipelineOptions{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	meter := o.meterProvider.Meter(instrumentationName)
	p := &Pipeline{steps: steps, tracer: o.tracerProvider.Tracer(instrumentationName)}

	var err error
	p.stepLatency, err = meter.Float64Histogram("ce_step_duration_seconds",
		metric.WithDescription("Time spent executing each pipeline step"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create step latency histogram: %w", err)
	}
	p.stepSuccesses, err = meter.Int64Counter("ce_step_success_total",
		metric.WithDescription("Number of successful step executions"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create step success counter: %w", err)
	}
	p.stepFailures, err = meter.Int64Counter("ce_step_failure_total",
		metric.WithDescription("Number of failed step executions"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create step failure counter: %w", err)
	}
	return p, nil
}

// Run executes every step in order. The timings of the steps that ran are returned even on error.
// There is no rollback: whatever a failed run already persisted stays.
func (p *Pipeline) Run(ctx context.Context, rc *repo.RunContext) ([]schema.StepTiming, error) {
	ctx, span := p.tracer.Start(ctx, "ce.Pipeline",
		trace.WithAttributes(attribute.Int("ce.step_count", len(p.steps))),
	)
	defer span.End()

	timings := make([]schema.StepTiming, 0, len(p.steps))
	for _, step := range p.steps {
		timing, err := p.runStep(ctx, rc, step)
		timings = append(timings, timing)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return timings, fmt.Errorf("step %q failed: %w", step.Description(), err)
		}
	}
	span.SetStatus(codes.Ok, "")
	return timings, nil
}

func (p *Pipeline) runStep(ctx context.Context, rc *repo.RunContext, step Step) (schema.StepTiming, error) {
	desc := step.Description()
	ctx, span := p.tracer.Start(ctx, desc, trace.WithAttributes(attribute.String("ce.step", desc)))
	defer span.End()

	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = step.Execute(ctx, rc)
	}
	duration := time.Since(start)
	fields, stats := rc.Stats.Drain()

	attrs := metric.WithAttributes(attribute.String("step", desc))
	p.stepLatency.Record(ctx, duration.Seconds(), attrs)
	timing := schema.StepTiming{Description: desc, Duration: duration, Stats: stats}

	if err != nil {
		p.stepFailures.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rc.Logger.Error(desc, append(fields, zap.Duration("duration", duration), zap.Error(err))...)
		return timing, err
	}
	p.stepSuccesses.Add(ctx, 1, attrs)
	span.SetStatus(codes.Ok, "")
	rc.Logger.Info(desc, append(fields, zap.Duration("duration", duration))...)
	return timing, nil
}
