// Package assistant talks to the generative-text service used to polish
// notes, translate them and summarise audits. Its output is advisory: an
// Advisor never fails, it hands back the input when the service does.
package assistant

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

	"github.com/dmitrijs2005/auditkeeper/internal/client/identity"
	"github.com/dmitrijs2005/auditkeeper/internal/logging"
)

const DefaultTimeout = 20 * time.Second

var ErrEmptyResponse = errors.New("assistant returned no text")

type Request struct {
	Input   string         `json:"input"`
	Context map[string]any `json:"context,omitempty"`
}

type Response struct {
	Text string `json:"text"`
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// HTTPGenerator POSTs requests as JSON to a single endpoint.
type HTTPGenerator struct {
	url      string
	http     *http.Client
	identity identity.Provider
}

func NewHTTPGenerator(url string, id identity.Provider, httpClient *http.Client) *HTTPGenerator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPGenerator{url: url, http: httpClient, identity: id}
}

func (g *HTTPGenerator) Generate(ctx context.Context, r Request) (*Response, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := identity.AccessToken(g.identity); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("assistant: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("assistant: decode response: %w", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return nil, ErrEmptyResponse
	}
	return &out, nil
}

// Advisor wraps a Generator with the task prompts the client uses.
type Advisor struct {
	gen Generator
	log logging.Logger
}

// NewAdvisor accepts a nil generator, in which case every call falls back.
func NewAdvisor(gen Generator, log logging.Logger) *Advisor {
	return &Advisor{gen: gen, log: log.With("module", "assistant")}
}

// Enhance rewrites an auditor's note into clear professional wording.
func (a *Advisor) Enhance(ctx context.Context, note string) string {
	return a.ask(ctx, "enhance", note, map[string]any{
		"task": "Rewrite this field audit note in clear, professional language. Keep every fact.",
	})
}

func (a *Advisor) Translate(ctx context.Context, text, language string) string {
	return a.ask(ctx, "translate", text, map[string]any{
		"task":     "Translate the text.",
		"language": language,
	})
}

// Summarize produces a short report summary from the audit's findings.
func (a *Advisor) Summarize(ctx context.Context, findings string, score int) string {
	return a.ask(ctx, "summarize", findings, map[string]any{
		"task":  "Summarise these audit findings for a report in three sentences or fewer.",
		"score": score,
	})
}

func (a *Advisor) ask(ctx context.Context, op, input string, c map[string]any) string {
	if a.gen == nil || strings.TrimSpace(input) == "" {
		return input
	}
	resp, err := a.gen.Generate(ctx, Request{Input: input, Context: c})
	if err != nil {
		a.log.Warn(ctx, "assistant unavailable, keeping original text", "op", op, "error", err)
		return input
	}
	return strings.TrimSpace(resp.Text)
}
