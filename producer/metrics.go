// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package producer

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "vawter.tech/streamcancel/producer"

type metrics struct {
	cancellations metric.Int64Counter
	dropped       metric.Int64Counter
	values        metric.Int64Counter
}

func defaultMeter() metric.Meter { return otel.Meter(meterName) }

func newMetrics(m metric.Meter) (*metrics, error) {
	var ret metrics
	var err error
	if ret.values, err = m.Int64Counter("streamcancel.producer.values",
		metric.WithDescription("Values sent into run streams."),
	); err != nil {
		return nil, err
	}
	if ret.dropped, err = m.Int64Counter("streamcancel.producer.dropped",
		metric.WithDescription("Pending values overwritten before being received."),
	); err != nil {
		return nil, err
	}
	if ret.cancellations, err = m.Int64Counter("streamcancel.producer.cancellations",
		metric.WithDescription("Runs that ended by cancellation rather than exhaustion."),
	); err != nil {
		return nil, err
	}
	return &ret, nil
}
