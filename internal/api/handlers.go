package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/domain"
	"demand-forecast/internal/forecast"
	"demand-forecast/internal/predictor"
)

// ForecastPoint is one entry of ForecastResponse.Data.
type ForecastPoint struct {
	Date     string  `json:"date"`
	Forecast float64 `json:"forecast"`
}

// ForecastResponse is the JSON response for /forecast/{product}.
type ForecastResponse struct {
	ProductID string          `json:"product_id"`
	Horizon   int             `json:"horizon"`
	Tier      domain.Tier     `json:"tier"`
	Data      []ForecastPoint `json:"data"`
}

// ProductsResponse is the JSON response for /products.
type ProductsResponse struct {
	Products []string `json:"products"`
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status          string      `json:"status"`
	Uptime          string      `json:"uptime"`
	Started         time.Time   `json:"started"`
	Requests        int64       `json:"requests"`
	RateLimited     int64       `json:"rate_limited"`
	Tier            domain.Tier `json:"tier,omitempty"`
	Fingerprint     string      `json:"fingerprint,omitempty"`
	ArtifactError   string      `json:"artifact_error,omitempty"`
	AllowedHorizons []int       `json:"allowed_horizons"`
}

const errNoArtifact = "no artifact published yet"

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.forecaster.Products(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductsResponse{Products: products})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	product := mux.Vars(r)["product"]

	horizon := s.defaultHorizon
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		h, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid horizon %q, allowed: %v", raw, s.allowed))
			return
		}
		horizon = h
	}
	if !s.horizonAllowed(horizon) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid horizon %d, allowed: %v", horizon, s.allowed))
		return
	}

	series, err := s.forecaster.ForecastSeries(r.Context(), product, horizon)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	resp := ForecastResponse{
		ProductID: series.ProductID,
		Horizon:   series.Horizon,
		Tier:      series.Tier,
		Data:      make([]ForecastPoint, len(series.Points)),
	}
	for i, p := range series.Points {
		resp.Data[i] = ForecastPoint{Date: p.Date.Format(domain.DateLayout), Forecast: p.Forecast}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	info, err := s.forecaster.Info(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	a, err := s.reloader.Reload(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.logger.Printf("artifact reloaded: tier=%s fingerprint=%s", a.Tier, a.Fingerprint)
	writeJSON(w, http.StatusOK, a.Info())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).Round(time.Second).String(),
		Started:         s.started,
		Requests:        s.requests.Load(),
		RateLimited:     s.limited.Load(),
		AllowedHorizons: s.allowed,
	}
	// Only the published artifact is reported; /status never resolves one.
	if s.artifacts != nil {
		if a := s.artifacts.Current(); a != nil {
			resp.Tier = a.Tier
			resp.Fingerprint = a.Fingerprint
		} else {
			resp.Status = "degraded"
			resp.ArtifactError = errNoArtifact
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) horizonAllowed(h int) bool {
	for _, a := range s.allowed {
		if a == h {
			return true
		}
	}
	return false
}

// writeEngineError maps engine errors to status codes.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, forecast.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, forecast.ErrUnknownProduct):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, artifact.ErrDataUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, predictor.ErrDependencyMissing):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
