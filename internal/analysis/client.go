package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// Analyzer produces a psychological profile from the analysis input.
type Analyzer interface {
	Analyze(ctx context.Context, in Input) (models.AnalysisResult, error)
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Timeout     time.Duration
}

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultTemperature = 0.3
	defaultTopP        = 0.8
	defaultMaxTokens   = 8192
	defaultTimeout     = 90 * time.Second
	maxErrorBody       = 2048
)

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, apperr.Configuration("analysis model is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.Configuration("analysis api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = defaultTopP
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.Named("analysis"),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Analyze sends the prompt and parses the reply. Transport and HTTP failures are
// ErrAnalysis; a reply that cannot be parsed degrades to Fallback.
func (c *Client) Analyze(ctx context.Context, in Input) (models.AnalysisResult, error) {
	reply, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: BuildPrompt(in)},
	})
	if err != nil {
		return models.AnalysisResult{}, err
	}

	result, fellBack := ParseResult(reply, in.UserProfile)
	if fellBack {
		c.log.Warn("Model reply unusable, using fallback profile",
			zap.Int("reply_length", len(reply)),
			zap.String("risk_tolerance", string(in.UserProfile.RiskTolerance)))
	}
	return result, nil
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	payload := map[string]any{
		"model":           c.cfg.Model,
		"messages":        messages,
		"temperature":     c.cfg.Temperature,
		"top_p":           c.cfg.TopP,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", apperr.Analysis("encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", apperr.Analysis("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Analysis("request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Analysis("read response", err)
	}
	c.log.Debug("Chat completion finished",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return "", apperr.Analysis("request", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", apperr.Analysis("decode response", err)
	}
	if len(decoded.Choices) == 0 {
		return "", apperr.Analysis("decode response", fmt.Errorf("no choices returned"))
	}
	return decoded.Choices[0].Message.Content, nil
}

// FallbackAnalyzer answers every request with the profile fallback. It serves deployments
// without a model key.
type FallbackAnalyzer struct{}

func (FallbackAnalyzer) Analyze(_ context.Context, in Input) (models.AnalysisResult, error) {
	return Fallback(in.UserProfile), nil
}
