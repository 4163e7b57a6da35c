package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/internal/rag"
	"rag-chatbot-platform/models"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// Default generation configuration.
const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultLLMModel    = "tinyllama"
	DefaultLLMTimeout  = 120 * time.Second
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 512
)

// LLMConfig holds configuration for the Ollama generation client.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	// RequestsPerMinute caps the local model's request rate. Zero disables
	// the limiter.
	RequestsPerMinute int
}

// OllamaClient sends prompts to a locally hosted Ollama instance. Calls run
// through a circuit breaker so a dead backend fails fast instead of holding
// request goroutines for the full timeout.
type OllamaClient struct {
	client      *http.Client
	baseURL     string
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

var _ rag.LLMClient = (*OllamaClient)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Temperature is always serialized: Ollama's server-side default is not 0,
// so omitting an explicit 0 would change the request's meaning.
type chatOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

func NewOllamaClient(cfg LLMConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "OllamaAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	return &OllamaClient{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		breaker:     breaker,
		rateLimiter: limiter,
	}
}

// Generate sends a non-streaming chat request and returns the generated text.
// Connection failures, timeouts, rate-limit waits cut short by context expiry,
// and an open breaker surface as rag.ErrLLMUnavailable; error statuses and
// undecodable bodies surface as rag.ErrLLMGeneration.
func (c *OllamaClient) Generate(ctx context.Context, messages []models.ChatTurn, opts rag.GenerateOptions) (string, error) {
	tracer := otel.Tracer("ollama-client")
	ctx, span := tracer.Start(ctx, "ollama.generate")
	defer span.End()

	model := opts.Model
	if model == "" {
		model = c.model
	}
	span.SetAttributes(
		attribute.String("ollama.model", model),
		attribute.Int("ollama.messages", len(messages)),
	)

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limiter: %v", rag.ErrLLMUnavailable, err)
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, model, messages, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("ollama.circuit_breaker_open", true))
			return "", fmt.Errorf("%w: circuit breaker open", rag.ErrLLMUnavailable)
		}
		span.SetAttributes(attribute.Bool("ollama.error", true))
		return "", err
	}

	return result.(string), nil
}

func (c *OllamaClient) generate(ctx context.Context, model string, messages []models.ChatTurn, opts rag.GenerateOptions) (string, error) {
	chatMessages := make([]chatMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	temperature := DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	reqBody := chatRequest{
		Model:    model,
		Messages: chatMessages,
		Stream:   false,
		Options:  &chatOptions{NumPredict: maxTokens, Temperature: temperature},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", rag.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", rag.ErrLLMGeneration, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", rag.ErrLLMGeneration, err)
	}
	if chatResp.Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", rag.ErrLLMGeneration)
	}

	return chatResp.Message.Content, nil
}

func (c *OllamaClient) ModelName() string { return c.model }

// Ping checks that the Ollama instance is reachable without running
// inference.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", rag.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", rag.ErrLLMUnavailable, resp.StatusCode)
	}
	return nil
}
