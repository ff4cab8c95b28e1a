// Package telemetry provides tracing-span helpers for a coupling-loop
// scenario, a coupling-loop iteration and a solver invocation. No engine
// package calls them.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "cvxlab"

// Tracer returns the package-wide tracer. The caller's main wires the
// global TracerProvider (an OTLP exporter, or the no-op default) before
// any spans are started; this package never configures a provider
// itself.
func Tracer() trace.Tracer { return otel.Tracer(tracerName) }

// StartScenario opens a span covering one scenario's coupling loop.
func StartScenario(ctx context.Context, scenario int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "coupling.scenario", trace.WithAttributes(
		attribute.Int("cvxlab.scenario", scenario),
	))
}

// StartIteration opens a span covering one Gauss-Seidel iteration.
func StartIteration(ctx context.Context, scenario, iteration int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "coupling.iteration", trace.WithAttributes(
		attribute.Int("cvxlab.scenario", scenario),
		attribute.Int("cvxlab.iteration", iteration),
	))
}

// StartSolve opens a span covering one solver invocation.
func StartSolve(ctx context.Context, problem string, scenario int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "solve.invoke", trace.WithAttributes(
		attribute.String("cvxlab.problem", problem),
		attribute.Int("cvxlab.scenario", scenario),
	))
}
