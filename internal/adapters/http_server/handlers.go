package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
)

type Handlers struct{ S *app.AnalysisService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/api/analyze-review", h.analyzeReview)
	s.mux.Get("/api/reviews", h.listReviews)
}

type analyzeRequest struct {
	ProductName string `json:"product_name"`
	ReviewText  string `json:"review_text"`
}

type analyzeResponse struct {
	ID          int64    `json:"id"`
	ProductName string   `json:"product_name"`
	Sentiment   string   `json:"sentiment"`
	Confidence  float64  `json:"confidence"`
	KeyPoints   []string `json:"key_points"`
	Status      string   `json:"status,omitempty"` // "cached" on a cache hit
}

type reviewItem struct {
	ID          int64     `json:"id"`
	ProductName string    `json:"product_name"`
	ReviewText  string    `json:"review_text"`
	Sentiment   string    `json:"sentiment"`
	Confidence  float64   `json:"confidence"`
	KeyPoints   []string  `json:"key_points"`
	CreatedAt   time.Time `json:"created_at"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func (h *Handlers) analyzeReview(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be a JSON object")
		return
	}

	res, err := h.S.AnalyzeReview(r.Context(), req.ProductName, req.ReviewText)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyReview) {
			writeProblem(w, http.StatusBadRequest, "Invalid body", "review_text is required")
			return
		}
		log.Error().Err(err).Msg("analyze review failed")
		writeProblem(w, http.StatusInternalServerError, "Analysis failed", err.Error())
		return
	}

	out := analyzeResponse{
		ID:          res.ID,
		ProductName: res.ProductName,
		Sentiment:   res.Sentiment,
		Confidence:  res.Confidence,
		KeyPoints:   res.KeyPoints,
	}
	if res.Cached {
		out.Status = "cached"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Error().Err(err).Msg("failed to write analyzeReview body")
	}
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	rows, err := h.S.ListReviews(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list reviews failed")
		writeProblem(w, http.StatusServiceUnavailable, "Storage unavailable", "could not read reviews")
		return
	}

	out := make([]reviewItem, 0, len(rows))
	for _, a := range rows {
		out = append(out, reviewItem{
			ID:          a.ID,
			ProductName: a.ProductName,
			ReviewText:  a.ReviewText,
			Sentiment:   a.Sentiment,
			Confidence:  a.Confidence,
			KeyPoints:   a.KeyPoints,
			CreatedAt:   a.CreatedAt,
		})
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listReviews body")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}
