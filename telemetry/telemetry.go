// Package telemetry wires the Datadog tracer and profiler behind the
// OpenTelemetry API.
package telemetry

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	ddotel "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/opentelemetry"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

type Manager struct {
	tracerShutdownFunc   func() error
	profilerShutdownFunc func()
	tracerProvider       *ddotel.TracerProvider
}

func New(enableTrace bool, enableProfiler bool) (*Manager, error) {
	tm := Manager{}

	tm.setupPropagator()

	if enableTrace {
		tm.setupTrace()
	}

	if enableProfiler {
		if err := tm.setupProfiler(); err != nil {
			return nil, errors.Join(err, tm.Shutdown())
		}
	}

	return &tm, nil
}

// Shutdown calls the cleanup functions registered in the telemetry manager.
func (tm *Manager) Shutdown() error {
	if tm.profilerShutdownFunc != nil {
		tm.profilerShutdownFunc()
	}

	if tm.tracerShutdownFunc != nil {
		return tm.tracerShutdownFunc()
	}

	return nil
}

func (tm *Manager) setupPropagator() {
	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prop)
}

func (tm *Manager) setupTrace() {
	tm.tracerProvider = ddotel.NewTracerProvider(tracer.WithRuntimeMetrics())
	tm.tracerShutdownFunc = tm.tracerProvider.Shutdown
	otel.SetTracerProvider(tm.tracerProvider)
}

func (tm *Manager) setupProfiler() error {
	err := profiler.Start(
		profiler.WithProfileTypes(
			profiler.CPUProfile,
			profiler.HeapProfile,
		),
	)
	if err != nil {
		return err
	}

	tm.profilerShutdownFunc = profiler.Stop

	return nil
}
