package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/domain"
)

// Client calls a HuggingFace inference endpoint for text classification.
// Single attempt per Classify call, bounded timeout; any failure is returned
// as an error and the caller falls back to the local estimator.
type Client struct {
	base  string
	hc    *http.Client
	token string
	rl    *rate.Limiter
}

func New(base, token string, timeout time.Duration, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("inference URL is required")
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:  base,
		hc:    &http.Client{Timeout: timeout},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type candidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify sends {"inputs": text} and picks the top-scoring candidate from
// the response. Strictly highest score wins; on an exact tie the first-seen
// candidate is kept.
func (c *Client) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.Classification{}, err
	}

	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return domain.Classification{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base, bytes.NewReader(body))
	if err != nil {
		return domain.Classification{}, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("huggingface", "classify", 0, time.Since(start))
		if ctx.Err() != nil {
			return domain.Classification{}, ctx.Err()
		}
		return domain.Classification{}, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("huggingface", "classify", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Classification{}, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Classification{}, err
	}
	cands, err := parseCandidates(raw)
	if err != nil {
		return domain.Classification{}, err
	}
	top := cands[0]
	for _, cd := range cands[1:] {
		if cd.Score > top.Score {
			top = cd
		}
	}
	return domain.Classification{Label: top.Label, Score: top.Score}, nil
}

// parseCandidates accepts both the nested [[{label,score},...]] shape the
// inference API returns for classification pipelines and the flat
// [{label,score},...] variant.
func parseCandidates(raw []byte) ([]candidate, error) {
	var nested [][]candidate
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}
	var flat []candidate
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	return nil, errors.New("malformed classification payload")
}
