package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sceneforge/internal/logging"
)

// GeminiClient implements Client for the Google Gemini API.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
	log             *zap.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-3-flash-preview",
		TimeoutSeconds:  600, // full scene generations need an extended timeout
		MaxOutputTokens: 65536,
	}
}

// NewGeminiClient creates a new Gemini client with default config.
func NewGeminiClient(apiKey string) *GeminiClient {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a new Gemini client with custom config.
func NewGeminiClientWithConfig(config GeminiConfig) *GeminiClient {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = 65536
	}

	return &GeminiClient{
		apiKey:          config.APIKey,
		baseURL:         baseURL,
		model:           model,
		maxOutputTokens: maxOutputTokens,
		httpClient:      &http.Client{Timeout: timeout},
		log:             logging.Named("provider"),
	}
}

// Model returns the current model.
func (c *GeminiClient) Model() string { return c.model }

// SetModel changes the model used for completions.
func (c *GeminiClient) SetModel(model string) { c.model = model }

// pace enforces a minimum gap between requests.
func (c *GeminiClient) pace() {
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
}

// ensureDeadline applies the client timeout when the context has none.
func (c *GeminiClient) ensureDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, c.httpClient.Timeout)
	}
	return ctx, func() {}
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, nil)
}

// CompleteWithSchema sends a prompt and enforces a JSON schema on the
// response via generationConfig.responseJsonSchema.
func (c *GeminiClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	schemaText := strings.TrimSpace(jsonSchema)
	if schemaText == "" {
		return "", fmt.Errorf("json schema is empty")
	}
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(schemaText), &schema); err != nil {
		return "", fmt.Errorf("invalid json schema: %w", err)
	}
	return c.complete(ctx, systemPrompt, userPrompt, schema)
}

func (c *GeminiClient) complete(ctx context.Context, systemPrompt, userPrompt string, schema map[string]interface{}) (string, error) {
	ctx, cancel := c.ensureDeadline(ctx)
	defer cancel()

	startTime := time.Now()
	c.log.Debug("completion request",
		zap.String("model", c.model),
		zap.Int("system_len", len(systemPrompt)),
		zap.Int("user_len", len(userPrompt)),
		zap.Bool("schema", schema != nil))

	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	c.pace()

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     1.0,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	if systemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}
	if schema != nil {
		reqBody.GenerationConfig.ResponseMimeType = "application/json"
		reqBody.GenerationConfig.ResponseSchema = schema
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	// Retry loop for rate limits and transient transport failures.
	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			if schema != nil && resp.StatusCode == http.StatusBadRequest && mentionsSchemaRejection(string(body)) {
				return "", ErrSchemaNotSupported
			}
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var geminiResp geminiResponse
		if err := json.Unmarshal(body, &geminiResp); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		if geminiResp.Error != nil {
			return "", fmt.Errorf("API error: %s", geminiResp.Error.Message)
		}
		if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("no completion returned")
		}

		var result strings.Builder
		for _, part := range geminiResp.Candidates[0].Content.Parts {
			result.WriteString(part.Text)
		}
		response := strings.TrimSpace(result.String())

		c.log.Debug("completion done",
			zap.Duration("elapsed", time.Since(startTime)),
			zap.Int("response_len", len(response)))
		return response, nil
	}

	c.log.Error("completion retries exhausted",
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Error(lastErr))
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func mentionsSchemaRejection(body string) bool {
	bodyLower := strings.ToLower(body)
	return strings.Contains(bodyLower, "responsejsonschema") ||
		strings.Contains(bodyLower, "responsemimetype") ||
		strings.Contains(bodyLower, "response_schema") ||
		strings.Contains(bodyLower, "response_mime_type") ||
		strings.Contains(bodyLower, "responseschema")
}

// CompleteWithStreaming sends a prompt with streaming enabled and returns
// channels of incremental content deltas.
func (c *GeminiClient) CompleteWithStreaming(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	contentChan := make(chan string, 100)
	errorChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errorChan)

		ctx, cancel := c.ensureDeadline(ctx)
		defer cancel()

		startTime := time.Now()
		c.log.Debug("streaming request", zap.String("model", c.model))

		if c.apiKey == "" {
			errorChan <- fmt.Errorf("API key not configured")
			return
		}

		c.pace()

		reqBody := geminiRequest{
			Contents: []geminiContent{
				{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
			},
			GenerationConfig: geminiGenerationConfig{
				Temperature:     1.0,
				MaxOutputTokens: c.maxOutputTokens,
			},
		}
		if systemPrompt != "" {
			reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
		}

		url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, c.model, c.apiKey)

		maxRetries := 3
		var lastErr error

		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					errorChan <- ctx.Err()
					return
				case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
				}
			}

			jsonData, err := json.Marshal(reqBody)
			if err != nil {
				errorChan <- fmt.Errorf("failed to marshal request: %w", err)
				return
			}

			req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
			if err != nil {
				errorChan <- fmt.Errorf("failed to create request: %w", err)
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "text/event-stream")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				lastErr = fmt.Errorf("request failed: %w", err)
				continue
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				lastErr = fmt.Errorf("rate limit exceeded (429): %s", strings.TrimSpace(string(body)))
				continue
			}

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				errorChan <- fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
				return
			}

			scanner := bufio.NewScanner(resp.Body)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

			scanDone := make(chan struct{})
			scanErrChan := make(chan error, 1)

			go func() {
				defer close(scanDone)
				for scanner.Scan() {
					line := scanner.Text()
					if !strings.HasPrefix(line, "data:") {
						continue
					}
					data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
					if data == "" {
						continue
					}
					if data == "[DONE]" {
						return
					}

					var chunk geminiResponse
					if err := json.Unmarshal([]byte(data), &chunk); err != nil {
						continue
					}
					if chunk.Error != nil {
						scanErrChan <- fmt.Errorf("API error: %s", chunk.Error.Message)
						return
					}
					if len(chunk.Candidates) == 0 {
						continue
					}
					for _, part := range chunk.Candidates[0].Content.Parts {
						if part.Text == "" {
							continue
						}
						select {
						case contentChan <- part.Text:
						case <-ctx.Done():
							return
						}
					}
				}
				if err := scanner.Err(); err != nil {
					scanErrChan <- err
				}
			}()

			select {
			case <-scanDone:
				resp.Body.Close()
				select {
				case err := <-scanErrChan:
					c.log.Error("stream failed",
						zap.Duration("elapsed", time.Since(startTime)), zap.Error(err))
					errorChan <- fmt.Errorf("stream error: %w", err)
				default:
					c.log.Debug("stream complete", zap.Duration("elapsed", time.Since(startTime)))
				}
			case <-ctx.Done():
				resp.Body.Close()
				<-scanDone
				c.log.Warn("stream cancelled", zap.Duration("elapsed", time.Since(startTime)))
				errorChan <- ctx.Err()
			}
			return
		}

		c.log.Error("stream retries exhausted",
			zap.Duration("elapsed", time.Since(startTime)), zap.Error(lastErr))
		errorChan <- fmt.Errorf("max retries exceeded: %w", lastErr)
	}()

	return contentChan, errorChan
}
