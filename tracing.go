// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tigerwill90/waypoint"

func startRebuildSpan(ctx context.Context, tracer trace.Tracer, collectors int) (context.Context, trace.Span) {
	return tracer.Start(
		ctx,
		"waypoint.rebuild",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("waypoint.collectors", collectors)),
	)
}

func endRebuildSpan(span trace.Span, outcome string, rt *Router, err error) {
	span.SetAttributes(attribute.String("waypoint.outcome", outcome))
	if rt != nil {
		span.SetAttributes(
			attribute.String("waypoint.build_id", rt.ID()),
			attribute.Int("waypoint.endpoints", rt.Len()),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
