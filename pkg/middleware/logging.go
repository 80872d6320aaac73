package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const RequestIDHeader = "X-Request-ID"

var tracer = otel.Tracer("github.com/iota-uz/greeting-store/pkg/middleware")

type responseCaptureWriter struct {
	http.ResponseWriter
	statusCode    int
	statusWritten bool
	bytes         int
}

func (w *responseCaptureWriter) WriteHeader(code int) {
	if !w.statusWritten {
		w.statusCode = code
		w.statusWritten = true
		w.ResponseWriter.WriteHeader(code)
	}
}

// Status returns the HTTP status code
func (w *responseCaptureWriter) Status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func (w *responseCaptureWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *responseCaptureWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func getRequestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

// WithLogger continues any incoming W3C trace, logs one line per request and
// turns handler panics into 500 responses.
func WithLogger(logger *logrus.Entry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := getRequestID(r)

			ctx := propagation.TraceContext{}.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(
				ctx,
				"http.request",
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.route", r.URL.Path),
					attribute.String("http.request_id", requestID),
				),
			)
			defer span.End()

			fieldsLogger := logger.WithFields(logrus.Fields{
				"request-id": requestID,
				"path":       r.URL.Path,
				"method":     r.Method,
				"trace-id":   span.SpanContext().TraceID().String(),
			})

			rw := &responseCaptureWriter{ResponseWriter: w}
			rw.Header().Set(RequestIDHeader, requestID)

			defer func() {
				if rec := recover(); rec != nil {
					fieldsLogger.WithFields(logrus.Fields{
						"panic": rec,
						"stack": string(debug.Stack()),
					}).Error("request panicked")
					if !rw.statusWritten {
						http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					}
				}
				span.SetAttributes(attribute.Int("http.status_code", rw.Status()))
				fieldsLogger.WithFields(logrus.Fields{
					"status":   rw.Status(),
					"bytes":    rw.bytes,
					"duration": time.Since(start).String(),
				}).Info("request completed")
			}()

			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}
