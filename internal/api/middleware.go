package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxLoggedBody caps request and response bodies in debug logs.
const maxLoggedBody = 4096

type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusWriter records the status code and size of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
	body   *bytes.Buffer
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.body != nil && w.body.Len() < maxLoggedBody {
		w.body.Write(b[:min(len(b), maxLoggedBody-w.body.Len())])
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// requestID assigns every request an id, reusing the caller's when given.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// recoverer turns a panicking handler into a 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", RequestID(r.Context())),
					zap.ByteString("stack", debug.Stack()),
				)
				s.recorder.RecordError("panic")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// tracing starts a server span per request, continuing the caller's trace
// when its headers carry one.
func (s *Server) tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent, _ := s.tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(r.Header))
		span := s.tracer.StartSpan("HTTP "+r.Method+" "+routeTemplate(r), ext.RPCServerOption(parent))
		defer span.Finish()

		ext.HTTPMethod.Set(span, r.Method)
		ext.HTTPUrl.Set(span, r.URL.String())
		span.SetTag("request_id", RequestID(r.Context()))

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(opentracing.ContextWithSpan(r.Context(), span)))

		ext.HTTPStatusCode.Set(span, uint16(sw.Status()))
		if sw.Status() >= http.StatusInternalServerError {
			ext.Error.Set(span, true)
		}
	})
}

// instrument logs every request and records its metrics. Bodies are logged
// at debug level only.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := routeTemplate(r)
		debugOn := s.logger.Core().Enabled(zap.DebugLevel)

		logger := s.logger.With(
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)

		sw := &statusWriter{ResponseWriter: w}
		if debugOn {
			var reqBody []byte
			if r.Body != nil {
				reqBody, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(reqBody))
			}
			logger.Debug("request",
				zap.String("query", r.URL.RawQuery),
				zap.Any("headers", r.Header),
				zap.ByteString("body", reqBody[:min(len(reqBody), maxLoggedBody)]),
			)
			sw.body = &bytes.Buffer{}
		}

		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		s.recorder.RecordHTTPRequest(r.Method, route, sw.Status(), elapsed)

		fields := []zap.Field{
			zap.String("route", route),
			zap.Int("status", sw.Status()),
			zap.Duration("latency", elapsed),
			zap.Int("bytes", sw.bytes),
			zap.String("remote", r.RemoteAddr),
		}
		if sw.body != nil {
			fields = append(fields, zap.ByteString("body", sw.body.Bytes()))
		}
		switch {
		case sw.Status() >= http.StatusInternalServerError:
			logger.Error("response", fields...)
		case sw.Status() >= http.StatusBadRequest:
			logger.Warn("response", fields...)
		default:
			logger.Info("response", fields...)
		}
	})
}
