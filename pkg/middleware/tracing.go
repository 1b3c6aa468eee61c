package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracing はリクエストごとにサーバースパンを開始するGinミドルウェアを返す。
// 上流から traceparent ヘッダーが渡された場合はそのトレースを引き継ぐ。
// スパン名は "{METHOD} {ルートのパス}" で、ルートが無い場合はパスを含めない。
func Tracing() gin.HandlerFunc {
	tracer := otel.Tracer("github.com/nao1215/chimeria/pkg/middleware")

	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		name := c.Request.Method
		if route := c.FullPath(); route != "" {
			name = fmt.Sprintf("%s %s", c.Request.Method, route)
		}

		ctx, span := tracer.Start(ctx, name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
