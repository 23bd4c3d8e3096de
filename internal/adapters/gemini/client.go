package gemini

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
)

// Client calls the Gemini generateContent endpoint to pull key points out of
// a review. Single attempt per Extract call; models are chatty, so the
// response is parsed leniently (fenced blocks, then JSON, then bare lines).
type Client struct {
	base  string
	model string
	key   string
	hc    *http.Client
	rl    *rate.Limiter
}

// New builds a client. An empty key is allowed: the endpoint rejects the
// call with 401 and the caller degrades to the sentinel, same as any other
// remote failure.
func New(base, model, key string, timeout time.Duration, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("generation URL is required")
	}
	if model == "" {
		model = "gemini-pro"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:  base,
		model: model,
		key:   key,
		hc:    &http.Client{Timeout: timeout},
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Extract asks the model for 3-5 key points and parses whatever comes back
// into a list of strings.
func (c *Client) Extract(ctx context.Context, text string) ([]string, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := buildPrompt(text)
	payload, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.base, c.model, c.key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("gemini", "generate", 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("gemini", "generate", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		// 429 quota exhaustion lands here too; callers degrade the same way.
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	raw, err := responseText(parsed)
	if err != nil {
		return nil, err
	}
	points := ParseKeyPoints(raw)
	if len(points) == 0 {
		return nil, errors.New("no key points in model output")
	}
	return points, nil
}

func buildPrompt(text string) string {
	return fmt.Sprintf("Extract 3-5 key points from this product review. Return ONLY a JSON list of strings, for example: [\"point 1\", \"point 2\"]. Do not use markdown code blocks. Review: %s", text)
}

func responseText(resp generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("response missing candidates")
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", errors.New("response missing content parts")
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// ParseKeyPoints turns free-form model output into a list of points.
// Order of attempts: strip a fenced block if present, decode as a JSON list
// of strings, and finally fall back to a line-based heuristic.
func ParseKeyPoints(raw string) []string {
	text := stripCodeFences(raw)

	var points []string
	if err := json.Unmarshal([]byte(text), &points); err == nil {
		return nonEmpty(points)
	}
	return linePoints(text)
}

// stripCodeFences extracts the content between the first pair of ``` fences
// and drops a leading language tag (```json and friends).
func stripCodeFences(input string) string {
	trimmed := strings.TrimSpace(input)
	start := strings.Index(trimmed, "```")
	if start == -1 {
		return trimmed
	}
	trimmed = trimmed[start+3:]
	if end := strings.Index(trimmed, "```"); end != -1 {
		trimmed = trimmed[:end]
	}
	// first line may be a language tag like "json"
	if nl := strings.IndexByte(trimmed, '\n'); nl != -1 {
		tag := strings.TrimSpace(trimmed[:nl])
		if tag != "" && !strings.ContainsAny(tag, " \t[{\"") {
			trimmed = trimmed[nl+1:]
		}
	}
	return strings.TrimSpace(trimmed)
}

// minPointLen filters out noise lines ("-", "1.", stray brackets) in the
// line-based fallback.
const minPointLen = 3

func linePoints(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789.) \t")
		line = strings.TrimSpace(line)
		if len(line) > minPointLen {
			out = append(out, line)
		}
	}
	return out
}

func nonEmpty(points []string) []string {
	var out []string
	for _, p := range points {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
