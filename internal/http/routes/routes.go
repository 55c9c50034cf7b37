package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/jlhuang/astrod/internal/astro"
	"github.com/jlhuang/astrod/internal/convert"
	"github.com/jlhuang/astrod/internal/horoscope"
)

type Server struct {
	Router    *chi.Mux
	Svc       *horoscope.Service
	Converter *convert.Converter
	Log       zerolog.Logger
}

type ServerOptions struct {
	Svc       *horoscope.Service
	Converter *convert.Converter
	Logger    zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))

	s := &Server{Router: r, Svc: opts.Svc, Converter: opts.Converter, Log: opts.Logger}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			s.Log.Error().Err(err).Msg("write health check response")
		}
	})

	r.Get("/astro_api", s.handleHTML)
	r.Get("/api/astro/{num}", s.handleJSON)
	r.Get("/api/update", s.handleUpdate)

	return s
}

// parseSign validates and converts a raw sign parameter.
func parseSign(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("sign must be an integer, got %q", raw)
	}
	if !astro.ValidSign(n) {
		return 0, fmt.Errorf("sign must be between 0 and %d, got %d", astro.SignCount-1, n)
	}
	return n, nil
}

// wantsConvert reports whether the request asked for script conversion.
func wantsConvert(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("convert")) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	sign, err := parseSign(r.URL.Query().Get("num"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e, err := s.Svc.Read(r.Context(), sign)
	if err != nil {
		s.Log.Error().Err(err).Int("sign", sign).Msg("read horoscope")
		http.Error(w, "horoscope unavailable", http.StatusInternalServerError)
		return
	}

	body := e.HTML
	if wantsConvert(r) {
		body = s.Converter.Convert(body)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(body)); err != nil {
		s.Log.Error().Err(err).Msg("write response")
	}
}

type astroResponse struct {
	Sign       int      `json:"sign"`
	SignName   string   `json:"sign_name"`
	Title      string   `json:"title"`
	Items      []string `json:"items"`
	Date       string   `json:"date"`
	Simplified bool     `json:"simplified"`
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	sign, err := parseSign(chi.URLParam(r, "num"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	e, err := s.Svc.Read(r.Context(), sign)
	if err != nil {
		s.Log.Error().Err(err).Int("sign", sign).Msg("read horoscope")
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "horoscope unavailable"})
		return
	}

	resp := astroResponse{
		Sign:     e.Sign,
		SignName: astro.SignName(e.Sign),
		Title:    e.Title,
		Items:    e.Items,
		Date:     e.Date,
	}
	if wantsConvert(r) {
		resp.Simplified = s.Converter.Available()
		resp.Title = s.Converter.Convert(resp.Title)
		converted := make([]string, len(e.Items))
		for i, item := range e.Items {
			converted[i] = s.Converter.Convert(item)
		}
		resp.Items = converted
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	updated, err := s.Svc.RefreshAll(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("refresh complete, %d entries updated", updated),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error().Err(err).Msg("encode response")
	}
}
