// Package server exposes the prediction pipeline over HTTP.
package server

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuminosukeSato/cropyield/dataset"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
)

// Client-facing messages. Internal error text never reaches the client.
const (
	msgModelFailure = "Model prediction failed."
	msgInternal     = "Internal Server Error."
)

// maxBodyBytes bounds a prediction request body.
const maxBodyBytes = 1 << 16

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Predictor is the part of the prediction pipeline the server needs.
type Predictor interface {
	Predict(r dataset.Record) (float64, error)
	Width() int
}

// Server routes HTTP requests to a Predictor.
type Server struct {
	predictor Predictor
	logger    log.Logger
	metrics   *Metrics
	registry  *prometheus.Registry
	router    chi.Router
}

// New builds a server with its own metrics registry.
func New(p Predictor, logger log.Logger) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		predictor: p,
		logger:    log.OrNop(logger).With(log.ComponentKey, "server"),
		metrics:   NewMetrics(reg),
		registry:  reg,
	}

	r := chi.NewRouter()
	r.Use(s.jsonRecoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(s.metrics.Middleware())

	r.Get("/", s.handleIndex)
	r.Post("/predict", s.handlePredict)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the Prometheus registry backing /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data := struct {
		Title     string
		Width     int
		SoilTypes []string
		Crops     []string
		Weather   []string
		YesNo     []string
	}{
		Title:     "Crop Yield Prediction",
		Width:     s.predictor.Width(),
		SoilTypes: soilTypes,
		Crops:     crops,
		Weather:   weatherConditions,
		YesNo:     yesNo,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("Index template failed", log.ErrorKey, err)
	}
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("request_id", chiMiddleware.GetReqID(r.Context()))

	req, err := decodeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.metrics.observePrediction(outcomeInvalid, 0)
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	y, err := s.predictor.Predict(req.Record())
	if err != nil {
		if errors.Is(err, errors.ErrPrediction) {
			s.metrics.observePrediction(outcomeModelFailure, 0)
			logger.Error("Prediction failed", log.ErrorKey, err)
			writeError(w, http.StatusInternalServerError, msgModelFailure)
			return
		}
		s.metrics.observePrediction(outcomeInternal, 0)
		logger.Error("Unexpected prediction error", log.ErrorKey, err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	s.metrics.observePrediction(outcomeOK, y)
	logger.Info("Prediction served",
		log.OperationKey, log.OperationPredict,
		log.PredictionKey, y,
	)
	writeJSON(w, http.StatusOK, PredictResponse{PredictedYield: y})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"features": s.predictor.Width(),
	})
}

// validationDetail renders a ValidationError as "<field>: <reason>".
func validationDetail(err error) string {
	var ve *errors.ValidationError
	if errors.As(err, &ve) {
		return ve.ParamName + ": " + ve.Reason
	}
	return "invalid request"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// jsonRecoverer returns a JSON 500 instead of a plain text stack trace.
func (s *Server) jsonRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				s.logger.Error("Panic recovered",
					log.ErrorKey, errors.NewPanicError(r.Method+" "+r.URL.Path, rvr),
					log.HTTPPathKey, r.URL.Path,
				)
				writeError(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestLogger emits one log line per request and propagates X-Request-ID.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chiMiddleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http_request",
			"request_id", requestID,
			log.HTTPMethodKey, r.Method,
			log.HTTPPathKey, r.URL.Path,
			log.HTTPStatusKey, ww.Status(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
			"response_bytes", ww.BytesWritten(),
		)
	})
}
