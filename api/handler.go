// Package api serves the geometry endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"github.com/megashaper/shaper/internal/metrics"
	"github.com/megashaper/shaper/internal/pipeline"
	"github.com/megashaper/shaper/internal/pool"
	"github.com/megashaper/shaper/rim"
	"go.uber.org/zap"
)

// Route paths.
const (
	PathSmallRim = "/v1/small_rim"
	PathHealth   = "/health"
	PathMetrics  = "/metrics"
	PathVersion  = "/version"
)

// Generator produces meshes for parameter records.
type Generator interface {
	Generate(ctx context.Context, requestID string, rec rim.Record) (*pipeline.Result, error)
}

// BuildInfo is reported by /version.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// ErrorResponse is the body of every failed request. RimGeo is always empty
// so clients reading the success shape see no mesh.
type ErrorResponse struct {
	Error     string           `json:"error"`
	Component string           `json:"component,omitempty"`
	Message   string           `json:"message"`
	Fields    []rim.FieldError `json:"fields,omitempty"`
	Retryable bool             `json:"retryable"`
	RimGeo    string           `json:"rim_geo"`
}

// Handler routes the API.
type Handler struct {
	gen     Generator
	metrics *metrics.Collector
	pool    *pool.Pool
	build   BuildInfo
	logger  *zap.Logger
	mux     *http.ServeMux
}

// NewHandler wires the routes. m and wp may be nil.
func NewHandler(gen Generator, m *metrics.Collector, wp *pool.Pool, build BuildInfo, logger *zap.Logger) *Handler {
	if build.GoVersion == "" {
		build.GoVersion = runtime.Version()
	}
	h := &Handler{
		gen:     gen,
		metrics: m,
		pool:    wp,
		build:   build,
		logger:  logger.With(zap.String("component", "api")),
		mux:     http.NewServeMux(),
	}
	h.mux.HandleFunc("GET "+PathSmallRim, h.smallRim)
	h.mux.HandleFunc("POST "+PathSmallRim, h.smallRim)
	h.mux.HandleFunc("GET "+PathHealth, h.health)
	h.mux.HandleFunc("GET "+PathVersion, h.version)
	if m != nil {
		h.mux.Handle("GET "+PathMetrics, m.Handler())
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// smallRim answers GET-with-body requests carrying a parameter record.
func (h *Handler) smallRim(w http.ResponseWriter, r *http.Request) {
	id := RequestIDFromContext(r.Context())
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			h.writeErrorStatus(w, &rim.Error{
				Kind:      rim.KindValidation,
				Component: rim.CompValidator,
				Msg:       fmt.Sprintf("request body larger than %d bytes", mbe.Limit),
			}, http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, rim.Wrap(err, rim.KindValidation, rim.CompValidator, "reading request body"))
		return
	}
	if len(body) == 0 {
		h.writeError(w, &rim.Error{Kind: rim.KindValidation, Component: rim.CompValidator, Msg: "empty request body, want a JSON parameter record"})
		return
	}
	rec, err := rim.DecodeRecord(body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.gen.Generate(r.Context(), id, rec)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	resp := struct {
		Status string      `json:"status"`
		Pool   *pool.Stats `json:"pool,omitempty"`
	}{Status: "ok"}
	if h.pool != nil {
		st := h.pool.Stats()
		resp.Pool = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.build)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeErrorStatus(w, err, StatusCode(rim.KindOf(err)))
}

func (h *Handler) writeErrorStatus(w http.ResponseWriter, err error, status int) {
	kind := rim.KindOf(err)
	resp := ErrorResponse{
		Error:     string(kind),
		Component: string(rim.ComponentOf(err)),
		Message:   err.Error(),
		Retryable: kind.Retryable(),
	}
	var re *rim.Error
	if errors.As(err, &re) {
		resp.Fields = re.Fields
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusGatewayTimeout {
		h.logger.Error("request failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	writeJSON(w, status, resp)
}

// StatusCode maps an error kind to its HTTP status.
func StatusCode(k rim.Kind) int {
	switch k {
	case rim.KindValidation:
		return http.StatusBadRequest
	case rim.KindDegenerate, rim.KindHoleOverlap:
		return http.StatusUnprocessableEntity
	case rim.KindUnimplemented:
		return http.StatusNotImplemented
	case rim.KindOverloaded:
		return http.StatusServiceUnavailable
	case rim.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
