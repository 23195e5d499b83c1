package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"go.uber.org/zap"
)

type ctxKey int

const collectionKey ctxKey = iota

// requestLogger logs every request and records the API metrics
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		if s.metrics != nil {
			s.metrics.APIRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			s.metrics.APILatency.WithLabelValues(r.Method, route).Observe(duration.Seconds())
		}

		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", duration),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// collectionCtx resolves the {collection} parameter, answering 404 for
// unknown collections
func (s *Server) collectionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := model.ParseCollection(chi.URLParam(r, "collection"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), collectionKey, c)))
	})
}

func collectionFrom(r *http.Request) model.Collection {
	c, _ := r.Context().Value(collectionKey).(model.Collection)
	return c
}
