// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/petar-djukic/filebind/pkg/types"
	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures a client for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey    string        // Bearer token (may be empty for local servers)
	BaseURL   string        // Endpoint base, e.g. http://localhost:11434/v1 (default api.openai.com)
	Model     string        // Model name (required)
	Timeout   time.Duration // Request timeout (default 300s)
	MaxTokens int           // Max tokens for the response (default 4096)
}

// OpenAIClient streams chat completions from an OpenAI-compatible server.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	timeout   time.Duration
	maxTokens int

	mu    sync.Mutex
	usage types.TokenUsage
}

// NewOpenAIClient creates a chat completion client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model is required", ErrLLMFailure)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(oc),
		model:     cfg.Model,
		timeout:   timeout,
		maxTokens: maxTokens,
	}, nil
}

// SendMessage streams a chat completion for prompt preceded by history. It
// follows the same channel contract as Client.SendMessage.
func (o *OpenAIClient) SendMessage(ctx context.Context, prompt string, history []types.Message, params types.ModelParams) (<-chan string, <-chan *types.StreamResponse) {
	tokenCh := make(chan string, 64)
	resultCh := make(chan *types.StreamResponse, 1)

	go func() {
		defer close(resultCh)

		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		stream, err := o.client.CreateChatCompletionStream(callCtx, o.request(prompt, history, params))
		if err != nil {
			close(tokenCh)
			resultCh <- &types.StreamResponse{Err: fmt.Errorf("%w: %v", ErrLLMFailure, err)}
			return
		}
		defer stream.Close()

		response := consumeChatStream(callCtx, stream, tokenCh)

		o.mu.Lock()
		o.usage.InputTokens += response.Usage.InputTokens
		o.usage.OutputTokens += response.Usage.OutputTokens
		o.mu.Unlock()

		resultCh <- response
	}()

	return tokenCh, resultCh
}

// CumulativeUsage returns the total token usage across all calls.
func (o *OpenAIClient) CumulativeUsage() types.TokenUsage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.usage
}

// request builds the chat completion request.
func (o *OpenAIClient) request(prompt string, history []types.Message, params types.ModelParams) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case types.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case types.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:         o.model,
		Messages:      messages,
		MaxTokens:     o.maxTokens,
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
		// Temperature is omitempty on the wire; zero would fall back to the
		// server default.
		if req.Temperature == 0 {
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	return req
}

// chatStream abstracts openai.ChatCompletionStream for testing.
type chatStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
}

// consumeChatStream reads chunks until io.EOF, forwarding content deltas to
// tokenCh and closing it on return.
func consumeChatStream(ctx context.Context, stream chatStream, tokenCh chan<- string) *types.StreamResponse {
	defer close(tokenCh)

	var text strings.Builder
	response := &types.StreamResponse{}

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			response.FullText = text.String()
			return response
		}
		if err != nil {
			response.FullText = text.String()
			response.Err = fmt.Errorf("%w: stream: %v", ErrLLMFailure, err)
			return response
		}

		if chunk.Usage != nil {
			response.Usage.InputTokens = chunk.Usage.PromptTokens
			response.Usage.OutputTokens = chunk.Usage.CompletionTokens
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			text.WriteString(choice.Delta.Content)
			select {
			case tokenCh <- choice.Delta.Content:
			case <-ctx.Done():
				response.FullText = text.String()
				response.Err = fmt.Errorf("%w: %v", ErrLLMFailure, ctx.Err())
				return response
			}
		}
	}
}
