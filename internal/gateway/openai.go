package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avitale/eduassist/internal/reliability"
)

// OpenAIAdapter talks to an OpenAI-compatible chat completions endpoint.
// Streaming uses server-sent events; a nil delta handler requests a single
// non-streamed completion.
type OpenAIAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewOpenAIAdapter(baseURL, apiKey, model string, timeout time.Duration) *OpenAIAdapter {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (a *OpenAIAdapter) StreamCompletion(ctx context.Context, req Request, onDelta DeltaHandler) (Response, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = a.model
	}
	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Stream: onDelta != nil,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, &Error{Code: "bad_request", Detail: fmt.Sprintf("marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Response{}, &Error{Code: "bad_request", Detail: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	res, err := a.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Cancellation is the caller's decision, never a gateway fault.
			return Response{}, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Response{}, &Error{Code: "timeout", Detail: err.Error(), Retryable: true}
		}
		return Response{}, &Error{Code: "transport", Detail: err.Error(), Retryable: true}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Response{}, statusError(res.StatusCode, res.Body)
	}

	if body.Stream {
		return a.consumeStream(ctx, res.Body, onDelta)
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, &Error{Code: "transport", Detail: fmt.Sprintf("read response: %v", err), Retryable: true}
	}
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, &Error{Code: "bad_response", Detail: fmt.Sprintf("parse response: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return Response{}, &Error{Code: "bad_response", Detail: "response contained no choices"}
	}
	return Response{Text: strings.TrimSpace(parsed.Choices[0].Message.Content)}, nil
}

func (a *OpenAIAdapter) consumeStream(ctx context.Context, body io.Reader, onDelta DeltaHandler) (Response, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if line == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return Response{}, &Error{Code: "bad_response", Detail: fmt.Sprintf("parse stream chunk: %v", err)}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		out.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return Response{}, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		return Response{}, &Error{Code: "transport", Detail: fmt.Sprintf("stream read: %v", err), Retryable: true}
	}

	return Response{Text: strings.TrimSpace(out.String())}, nil
}

func statusError(status int, body io.Reader) *Error {
	raw, _ := io.ReadAll(io.LimitReader(body, 4<<10))
	detail := extractAPIError(raw)
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d", status)
	}

	code := fmt.Sprintf("http_%d", status)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = "auth"
	case http.StatusTooManyRequests:
		code = "rate_limited"
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		code = "unavailable"
	}
	return &Error{Code: code, Detail: detail, Retryable: reliability.IsRetryableHTTPStatus(status)}
}

func extractAPIError(raw []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &parsed) == nil {
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
