// Package telemetry emits one span per module promotion
// (UNRESOLVED->RESOLVED->REWRITTEN) and offers FetchSpan for wrapping a
// single fetch; the gatherer does not call FetchSpan. No OTLP exporter is registered by
// default — spec.md names no collector target, so Provider wraps a
// sdktrace.TracerProvider with no exporter unless the caller adds one,
// keeping the span API exercised without inventing a transport.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/mstoykov/prebake/ids"
	"github.com/mstoykov/prebake/moduleset"
)

const instrumentationName = "github.com/mstoykov/prebake/telemetry"

// Provider wraps a sdktrace.TracerProvider tagged with a run id, so every
// span this package opens can be correlated back to one gather/rewrite
// run without threading a run id through every component by hand.
type Provider struct {
	tp    *sdktrace.TracerProvider
	tr    trace.Tracer
	runID string
}

// NewProvider builds a Provider over opts (e.g. an exporter-bearing
// sdktrace.WithBatcher option, supplied by the caller); with no opts, the
// resulting TracerProvider has no exporter registered, matching
// SPEC_FULL.md's "no-op sink by default".
func NewProvider(runID string, opts ...sdktrace.TracerProviderOption) *Provider {
	tp := sdktrace.NewTracerProvider(opts...)
	return &Provider{tp: tp, tr: tp.Tracer(instrumentationName), runID: runID}
}

// Shutdown releases the underlying TracerProvider's resources.
func (p *Provider) Shutdown(ctx context.Context) error { return p.tp.Shutdown(ctx) }

// AttachToSet subscribes a span-per-promotion observer to set for every
// stage prebake tracks, closing each module's span once it reaches
// REWRITTEN or ERROR.
func (p *Provider) AttachToSet(set *moduleset.Set) {
	spans := newSpanTable()
	set.OnAnyPromotedTo(moduleset.Unresolved, func(m *moduleset.Module) {
		_, span := p.tr.Start(context.Background(), "module.unresolved", trace.WithAttributes(p.moduleAttrs(m)...))
		spans.store(m.ID, span)
	})
	set.OnAnyPromotedTo(moduleset.Resolved, func(m *moduleset.Module) {
		p.reStart(spans, m, "module.resolved")
	})
	set.OnAnyPromotedTo(moduleset.Rewritten, func(m *moduleset.Module) {
		span := spans.take(m.ID)
		if span == nil {
			_, span = p.tr.Start(context.Background(), "module.rewritten", trace.WithAttributes(p.moduleAttrs(m)...))
		}
		span.SetStatus(codes.Ok, "")
		span.End()
	})
	set.OnAnyPromotedTo(moduleset.StageError, func(m *moduleset.Module) {
		span := spans.take(m.ID)
		if span == nil {
			_, span = p.tr.Start(context.Background(), "module.error", trace.WithAttributes(p.moduleAttrs(m)...))
		}
		span.SetStatus(codes.Error, "module reached ERROR")
		span.End()
	})
}

// reStart ends whatever span was open for m's id (if any) and opens a
// fresh one named name, tracking it under the same id so a later stage
// can close it in turn.
func (p *Provider) reStart(spans *spanTable, m *moduleset.Module, name string) {
	if prev := spans.take(m.ID); prev != nil {
		prev.End()
	}
	_, span := p.tr.Start(context.Background(), name, trace.WithAttributes(p.moduleAttrs(m)...))
	spans.store(m.ID, span)
}

func (p *Provider) moduleAttrs(m *moduleset.Module) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("prebake.run_id", p.runID),
		attribute.String("prebake.module.id", m.ID.String()),
	}
	if canon, ok := m.ID.Canon(); ok {
		attrs = append(attrs, attribute.String("prebake.module.canonical", canon))
	}
	return attrs
}

// FetchSpan opens a span covering one gatherer fetch attempt for
// specifier, returning an end func the caller defers.
func (p *Provider) FetchSpan(ctx context.Context, specifier string) (context.Context, func(err error)) {
	spanCtx, span := p.tr.Start(ctx, "gatherer.fetch", trace.WithAttributes(
		attribute.String("prebake.run_id", p.runID),
		attribute.String("prebake.specifier", specifier),
	))
	return spanCtx, func(err error) {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// spanTable tracks the one open span per module id across promotions;
// plain map is fine here since every caller above runs on the module
// set's own mailbox goroutine (OnAnyPromotedTo callbacks are dispatched
// serially), so no locking is needed.
type spanTable struct {
	byKey map[string]trace.Span
}

func newSpanTable() *spanTable { return &spanTable{byKey: make(map[string]trace.Span)} }

func (t *spanTable) store(id ids.ID, span trace.Span) { t.byKey[id.Key()] = span }

func (t *spanTable) take(id ids.ID) trace.Span {
	span, ok := t.byKey[id.Key()]
	if !ok {
		return nil
	}
	delete(t.byKey, id.Key())
	return span
}
