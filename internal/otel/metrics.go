package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/lotflow/lotflow/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	metrics "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	RequestTotal    metrics.Int64Counter
	RequestUriTotal metrics.Int64Counter
	RequestDuration metrics.Float64Histogram

	ProcessesStarted metrics.Int64Counter
	TasksCompleted   metrics.Int64Counter
	CcpChecks        metrics.Int64Counter
	CcpDeviations    metrics.Int64Counter
	LotsRecalled     metrics.Int64Counter

	requestMeter string = "request-meter"
	domainMeter  string = "lotflow-meter"
)

type Otel struct {
	meterProvider  *metric.MeterProvider
	tracerprovider *trace.TracerProvider
}

func SetupOtel(conf config.Tracing) (*Otel, error) {
	o := Otel{}
	var err error

	o.meterProvider, err = setupMeterProvider(conf.Name)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(o.meterProvider)
	if conf.Enabled {
		o.tracerprovider, err = setupTraceProvider(conf)
		otel.SetTracerProvider(o.tracerprovider)
		if err != nil {
			return nil, fmt.Errorf("failed to set up tracer: %w", err)
		}
	}

	return &o, nil
}

func (o *Otel) Stop(ctx context.Context) {
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
		o.meterProvider = nil
	}
	if o.tracerprovider != nil {
		_ = o.tracerprovider.Shutdown(ctx)
		o.tracerprovider = nil
	}
}

func setupMeterProvider(appName string) (*metric.MeterProvider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to set up prometheus exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(appName),
		attribute.String("library.language", "go"),
	))
	if err != nil {
		return nil, err
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)

	var errJoin error
	RequestTotal, err = otel.Meter(requestMeter).Int64Counter("request_total", metrics.WithDescription("Total requests to the server"))
	errJoin = errors.Join(errJoin, err)
	RequestUriTotal, err = otel.Meter(requestMeter).Int64Counter("request_uri_total", metrics.WithDescription("Total request per uri"))
	errJoin = errors.Join(errJoin, err)
	RequestDuration, err = otel.Meter(requestMeter).Float64Histogram("request_duration", metrics.WithUnit("ms"), metrics.WithDescription("Time the server took to handle the request, milliseconds"))
	errJoin = errors.Join(errJoin, err)
	ProcessesStarted, err = otel.Meter(domainMeter).Int64Counter("processes_started_total", metrics.WithDescription("Total process instances started"))
	errJoin = errors.Join(errJoin, err)
	TasksCompleted, err = otel.Meter(domainMeter).Int64Counter("tasks_completed_total", metrics.WithDescription("Total tasks completed"))
	errJoin = errors.Join(errJoin, err)
	CcpChecks, err = otel.Meter(domainMeter).Int64Counter("ccp_checks_total", metrics.WithDescription("Total CCP checks completed"))
	errJoin = errors.Join(errJoin, err)
	CcpDeviations, err = otel.Meter(domainMeter).Int64Counter("ccp_deviations_total", metrics.WithDescription("Total critical limit deviations detected"))
	errJoin = errors.Join(errJoin, err)
	LotsRecalled, err = otel.Meter(domainMeter).Int64Counter("lots_recalled_total", metrics.WithDescription("Total lots switched to RECALLED"))
	errJoin = errors.Join(errJoin, err)
	if errJoin != nil {
		return nil, fmt.Errorf("failed to create otel instruments: %w", err)
	}
	return meterProvider, nil
}

// Add increments an instrument that may not have been registered yet.
// Instruments stay nil when SetupOtel was never called, as in tests.
func Add(ctx context.Context, counter metrics.Int64Counter, value int64) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value)
}
