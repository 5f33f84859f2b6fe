package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	appanalysis "github.com/bryanwahyu/jailbreak-firewall/internal/application/analysis"
	domain "github.com/bryanwahyu/jailbreak-firewall/internal/domain/analysis"
	"github.com/bryanwahyu/jailbreak-firewall/internal/middleware"
)

// maxBodyBytes bounds a check request; a 5000 character prompt fits with room for escaping.
const maxBodyBytes = 1 << 20

var (
	errBadRequest    = errors.New("bad request")
	errBodyTooLarge  = errors.New("request body too large")
	errStorageFailed = errors.New("failed to store analysis")
)

type Router struct {
	analysisSvc *appanalysis.Service
	metrics     *middleware.Metrics
}

// Options configures the ambient routes and middleware around the API.
type Options struct {
	Metrics        *middleware.Metrics
	HealthCheckers map[string]middleware.HealthChecker
	// Limiter guards /api routes per client IP; nil disables it. The caller owns
	// its lifetime and stops it on shutdown.
	Limiter *middleware.ClientLimiter
}

func NewRouter(analysisSvc *appanalysis.Service, opts Options) http.Handler {
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}
	r := &Router{analysisSvc: analysisSvc, metrics: opts.Metrics}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(opts.Metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	mux.Get("/", page("index.html"))
	mux.Get("/index.html", page("index.html"))
	mux.Get("/about.html", page("about.html"))
	mux.Get("/result.html", page("result.html"))

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/healthz/live", middleware.LivenessHandler)
	mux.Get("/healthz/ready", middleware.ReadinessHandler)
	mux.Get("/metrics", opts.Metrics.Handler)

	mux.Route("/api/firewall", func(rt chi.Router) {
		if opts.Limiter != nil {
			rt.Use(opts.Limiter.Middleware)
		}
		rt.Post("/check", r.wrap(r.handleCheck))
		rt.Get("/logs", r.wrap(r.handleLogs))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, errBadRequest),
			errors.Is(err, domain.ErrEmptyPrompt),
			errors.Is(err, domain.ErrInvalidFilter):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrPromptTooLong), errors.Is(err, errBodyTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, domain.ErrStorage):
			log.Error().Err(err).Str("request_id", middleware.GetRequestID(req.Context())).Msg("storage failure")
			writeError(w, http.StatusInternalServerError, errStorageFailed.Error())
		default:
			log.Error().Err(err).Str("request_id", middleware.GetRequestID(req.Context())).Msg("request failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

// POST /api/firewall/check
// Body: {"prompt": "<text>"}
func (r *Router) handleCheck(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Prompt *string `json:"prompt"`
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if body.Prompt == nil {
		return fmt.Errorf("%w: prompt is required", errBadRequest)
	}

	// Once accepted the analysis runs to completion even if the caller goes away,
	// so every engine call ends in a stored record.
	ctx := context.WithoutCancel(req.Context())
	rec, err := r.analysisSvc.Analyze(ctx, *body.Prompt)
	if err != nil {
		if errors.Is(err, domain.ErrStorage) {
			r.metrics.RecordAnalysis(false, true)
		}
		return err
	}
	r.metrics.RecordAnalysis(rec.Offline(), false)

	return writeJSON(w, http.StatusOK, rec)
}

// GET /api/firewall/logs?jailbreakCategory=&harmfulnessCategory=
func (r *Router) handleLogs(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	f := domain.Filter{
		JailbreakCategory:   q.Get("jailbreakCategory"),
		HarmfulnessCategory: q.Get("harmfulnessCategory"),
	}
	for _, c := range []string{f.JailbreakCategory, f.HarmfulnessCategory} {
		if c == "" {
			continue
		}
		if err := middleware.ValidateCategory(c); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}

	list, err := r.analysisSvc.List(req.Context(), f)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}
