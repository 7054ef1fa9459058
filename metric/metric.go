/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package metric defines the OpenTelemetry instruments recorded by the
// routing engine.
package metric

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "dirpx.dev/capx"

	resolutionsCounterName  = "capx.resolutions"
	notFoundCounterName     = "capx.resolutions.not_found"
	appliesCounterName      = "capx.isolate.applies"
	withdrawalsCounterName  = "capx.isolate.withdrawals"
	invocationHistogramName = "capx.invocation.duration"
)

// RoutingMetric holds the instruments of the routing engine.
// A nil *RoutingMetric records nothing.
type RoutingMetric struct {
	// counts successful resolutions
	Resolutions metric.Int64Counter
	// counts resolutions that matched no signature
	NotFound metric.Int64Counter
	// counts collectors applied to an isolate
	Applies metric.Int64Counter
	// counts collectors withdrawn from an isolate
	Withdrawals metric.Int64Counter
	// captures implementation latency in milliseconds
	InvocationDuration metric.Float64Histogram
}

// DefaultMeter returns the meter of the global otel MeterProvider.
func DefaultMeter() metric.Meter {
	return otel.GetMeterProvider().Meter(instrumentationName)
}

// NewRoutingMetric creates the routing instruments on meter.
func NewRoutingMetric(meter metric.Meter) (*RoutingMetric, error) {
	m := new(RoutingMetric)
	var err error

	if m.Resolutions, err = meter.Int64Counter(
		resolutionsCounterName,
		metric.WithDescription("The total number of successful capability resolutions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create resolutions instrument, %v", err)
	}

	if m.NotFound, err = meter.Int64Counter(
		notFoundCounterName,
		metric.WithDescription("The total number of resolutions with no matching signature"),
	); err != nil {
		return nil, fmt.Errorf("failed to create not-found instrument, %v", err)
	}

	if m.Applies, err = meter.Int64Counter(
		appliesCounterName,
		metric.WithDescription("The total number of collectors applied to isolates"),
	); err != nil {
		return nil, fmt.Errorf("failed to create applies instrument, %v", err)
	}

	if m.Withdrawals, err = meter.Int64Counter(
		withdrawalsCounterName,
		metric.WithDescription("The total number of collectors withdrawn from isolates"),
	); err != nil {
		return nil, fmt.Errorf("failed to create withdrawals instrument, %v", err)
	}

	if m.InvocationDuration, err = meter.Float64Histogram(
		invocationHistogramName,
		metric.WithDescription("The latency of capability implementations in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create invocation instrument, %v", err)
	}

	return m, nil
}

// RecordResolution counts one resolution of capability.
func (m *RoutingMetric) RecordResolution(ctx context.Context, capability string, found bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("capability", capability))
	if found {
		m.Resolutions.Add(ctx, 1, attrs)
		return
	}
	m.NotFound.Add(ctx, 1, attrs)
}

// RecordApply counts one collector applied to isolate.
func (m *RoutingMetric) RecordApply(ctx context.Context, isolate, collector string) {
	if m == nil {
		return
	}
	m.Applies.Add(ctx, 1, metric.WithAttributes(
		attribute.String("isolate", isolate),
		attribute.String("collector", collector),
	))
}

// RecordWithdraw counts one collector withdrawn from isolate.
func (m *RoutingMetric) RecordWithdraw(ctx context.Context, isolate, collector string) {
	if m == nil {
		return
	}
	m.Withdrawals.Add(ctx, 1, metric.WithAttributes(
		attribute.String("isolate", isolate),
		attribute.String("collector", collector),
	))
}

// RecordInvocation records the latency of one implementation call.
func (m *RoutingMetric) RecordInvocation(ctx context.Context, capability string, took time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.InvocationDuration.Record(ctx, float64(took)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.Bool("failed", failed),
	))
}
