package workers

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/delegator/internal/tlsutil"
)

// RemoteConfig configures a worker backed by an OpenAI-compatible
// chat-completions endpoint.
type RemoteConfig struct {
	// BaseURL is the service root, e.g. "https://api.deepseek.com".
	BaseURL string
	// Model is sent with every request.
	Model string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// SystemPrompt is prepended as a system message when non-empty.
	SystemPrompt string
	// Timeout bounds each HTTP request. Defaults to 60s.
	Timeout time.Duration
	// RateLimitRPS caps requests per second; zero disables limiting.
	RateLimitRPS float64
	// RateLimitBurst is the limiter burst. Defaults to 1.
	RateLimitBurst int
	// TLS overrides the hardened default client TLS settings.
	TLS *tls.Config
}

const (
	chatCompletionsPath = "/v1/chat/completions"
	modelsPath          = "/v1/models"
	maxErrorBody        = 512
)

// RemoteLocator constructs RemoteWorker instances.
type RemoteLocator struct {
	Config RemoteConfig
	Client *http.Client
	Logger *zap.Logger
}

// Remote returns a Locator for an OpenAI-compatible service.
func Remote(cfg RemoteConfig, logger *zap.Logger) RemoteLocator {
	return RemoteLocator{Config: cfg, Logger: logger}
}

// Locate validates the configuration and builds the worker. It does not
// contact the service; Setup does.
func (l RemoteLocator) Locate(context.Context) (Worker, error) {
	cfg := l.Config
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("remote worker base_url is empty")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote worker base_url %q is not an absolute URL", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := l.Client
	if client == nil {
		client = tlsutil.HTTPClient(cfg.Timeout, cfg.TLS)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RemoteWorker{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		limiter: limiter,
		logger:  logger.With(zap.String("component", "remote_worker"), zap.String("base_url", cfg.BaseURL)),
	}, nil
}

// Kind implements Locator.
func (RemoteLocator) Kind() string { return "remote" }

// RemoteWorker calls an OpenAI-compatible chat-completions endpoint.
type RemoteWorker struct {
	cfg     RemoteConfig
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Setup probes the models endpoint so a misconfigured service fails at
// first use rather than mid-run.
func (w *RemoteWorker) Setup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+modelsPath, nil)
	if err != nil {
		return err
	}
	w.applyHeaders(req)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", modelsPath, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe %s: status %d", modelsPath, resp.StatusCode)
	}
	return nil
}

// RunTask sends prompt as a user message and returns the first choice.
func (w *RemoteWorker) RunTask(ctx context.Context, prompt string) (string, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	messages := make([]chatMessage, 0, 2)
	if w.cfg.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: w.cfg.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: w.cfg.Model, Messages: messages})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	w.applyHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("chat completion: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	if out.Error != nil && out.Error.Message != "" {
		return "", fmt.Errorf("chat completion: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	w.logger.Debug("chat completion finished",
		zap.String("model", w.cfg.Model),
		zap.Duration("duration", time.Since(start)),
	)
	return out.Choices[0].Message.Content, nil
}

func (w *RemoteWorker) applyHeaders(req *http.Request) {
	if w.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)
	}
}
