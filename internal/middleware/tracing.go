package middleware

import (
	"fmt"

	"openobservatory/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware opens a server span per request. The span is renamed to
// the matched route once routing is done so /api/observations/42 and
// /api/observations/43 share one span name.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		parent := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))
		ctx, span := observability.Tracer.Start(parent, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttributes(c)...),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set("X-Trace-ID", traceID)
		c.SetUserContext(ctx)

		err := c.Next()
		finishSpan(c, span, err)
		return err
	}
}

func requestAttributes(c *fiber.Ctx) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Method()),
		attribute.String("http.target", c.OriginalURL()),
		attribute.String("http.client_ip", c.IP()),
		attribute.String("http.user_agent", c.Get(fiber.HeaderUserAgent)),
	}
	if id := c.Locals("requestid"); id != nil {
		attrs = append(attrs, attribute.String("request.id", fmt.Sprint(id)))
	}
	return attrs
}

// finishSpan records what routing and the handlers decided.
func finishSpan(c *fiber.Ctx, span trace.Span, err error) {
	if route := c.Route(); route != nil && route.Path != "" {
		span.SetName(c.Method() + " " + route.Path)
		span.SetAttributes(attribute.String("http.route", route.Path))
	}
	status := c.Response().StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	if userID := c.Locals("userID"); userID != nil {
		span.SetAttributes(attribute.String("user.id", fmt.Sprint(userID)))
	}
	if err != nil {
		span.RecordError(err)
	}
	if err != nil || status >= fiber.StatusInternalServerError {
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
	}
}
