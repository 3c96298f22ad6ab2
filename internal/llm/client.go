// Package llm talks to Gemini: it categorises raw bank statements into
// ledger rows and writes the monthly narrative report.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/summary"

	"google.golang.org/genai"
)

const (
	DefaultModel    = "gemini-2.5-pro"
	maxOutputTokens = 65536
)

var ErrEmptyResponse = errors.New("empty response from model")

// generator is the subset of *genai.Models the client uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey    string
	Model     string
	CacheSize int
	CacheTTL  time.Duration
}

type Client struct {
	models generator
	model  string
	parsed *cache.LRUCache[[]core.ParsedTransaction]
}

// StatementRequest is one raw statement to categorise.
type StatementRequest struct {
	Profile     core.Profile
	Year        int
	CSV         string
	BudgetLines []core.BudgetLine
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(gc.Models, cfg), nil
}

func newClient(models generator, cfg Config) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	size, ttl := cfg.CacheSize, cfg.CacheTTL
	if size <= 0 {
		size = 32
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Client{
		models: models,
		model:  model,
		parsed: cache.NewLRUCache[[]core.ParsedTransaction](size, ttl),
	}
}

// Cache exposes the categorisation cache so it can be registered for cleanup.
func (c *Client) Cache() *cache.LRUCache[[]core.ParsedTransaction] {
	return c.parsed
}

// ParseStatement returns one normalised row per transaction in req.CSV.
// Identical requests within the cache TTL are served without calling the
// model. The budget lines are part of the key since they shape the prompt.
func (c *Client) ParseStatement(ctx context.Context, req StatementRequest) ([]core.ParsedTransaction, error) {
	if strings.TrimSpace(req.CSV) == "" {
		return nil, core.ErrEmptyBatch
	}

	key := statementKey(req)
	if rows, ok := c.parsed.Get(key); ok {
		slog.InfoContext(ctx, "Statement served from cache",
			"profile_id", req.Profile.ID,
			"rows", len(rows))
		return cloneRows(rows), nil
	}

	slog.InfoContext(ctx, "Categorising statement",
		"profile_id", req.Profile.ID,
		"budget_lines", len(req.BudgetLines),
		"csv_bytes", len(req.CSV),
		"model", c.model)

	raw, err := c.generate(ctx, statementPrompt(req), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		MaxOutputTokens:  maxOutputTokens,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("categorise statement: %w", err)
	}

	var modelRows []modelRow
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &modelRows); err != nil {
		return nil, fmt.Errorf("decode model output: %w (starts %q)", err, preview(raw, 300))
	}

	rows := make([]core.ParsedTransaction, 0, len(modelRows))
	for _, r := range modelRows {
		rows = append(rows, r.normalize())
	}
	c.parsed.Set(key, rows)

	slog.InfoContext(ctx, "Statement categorised",
		"profile_id", req.Profile.ID,
		"rows", len(rows))
	return cloneRows(rows), nil
}

// AnalyzeMonth writes a short narrative review of m.
func (c *Client) AnalyzeMonth(ctx context.Context, m summary.Monthly, comments string) (string, error) {
	prompt, err := analysisPrompt(m, comments)
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Requesting monthly analysis",
		"profile_id", m.Profile.ID,
		"year", m.Year,
		"month", m.Month,
		"model", c.model)

	text, err := c.generate(ctx, prompt, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.4),
		MaxOutputTokens: 8192,
	})
	if err != nil {
		return "", fmt.Errorf("analyze month: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// cloneRows keeps callers from mutating cached slices.
func statementKey(req StatementRequest) string {
	parts := make([]string, 0, 3+len(req.BudgetLines))
	parts = append(parts, req.Profile.ID, strconv.Itoa(req.Year), req.CSV)
	for _, bl := range req.BudgetLines {
		parts = append(parts, strings.Join([]string{
			string(bl.Group),
			bl.Name,
			bl.MonthlyAmount.String(),
			bl.AnnualAmount.String(),
			strconv.FormatBool(bl.IsAnnual),
		}, "\x00"))
	}
	return cache.Key(parts...)
}

func cloneRows(rows []core.ParsedTransaction) []core.ParsedTransaction {
	out := make([]core.ParsedTransaction, len(rows))
	copy(out, rows)
	return out
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
