// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/petar-djukic/filebind/pkg/types"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// EventStream abstracts the Bedrock ConverseStream event stream for testing.
type EventStream interface {
	Events() <-chan brtypes.ConverseStreamOutput
	Close() error
	Err() error
}

// consumeStream reads events from a Bedrock ConverseStream, sends text tokens
// through the provided channel, and accumulates the full response. The channel
// is closed when streaming completes or the context is cancelled. A stream
// error or cancellation is reported in the response's Err field.
func consumeStream(ctx context.Context, stream EventStream, tokenCh chan<- string) *types.StreamResponse {
	defer close(tokenCh)

	var text strings.Builder
	response := &types.StreamResponse{}

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			// Context cancelled; return what we have so far.
			stream.Close()
			response.FullText = text.String()
			response.Err = fmt.Errorf("%w: %v", ErrLLMFailure, ctx.Err())
			return response

		case event, ok := <-events:
			if !ok {
				// Channel closed; streaming complete.
				response.FullText = text.String()
				if err := stream.Err(); err != nil {
					response.Err = fmt.Errorf("%w: stream: %v", ErrLLMFailure, err)
				}
				return response
			}

			switch v := event.(type) {
			case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
				if delta, ok := v.Value.Delta.(*brtypes.ContentBlockDeltaMemberText); ok {
					text.WriteString(delta.Value)
					// Send the token through the channel, respecting cancellation.
					select {
					case tokenCh <- delta.Value:
					case <-ctx.Done():
						stream.Close()
						response.FullText = text.String()
						response.Err = fmt.Errorf("%w: %v", ErrLLMFailure, ctx.Err())
						return response
					}
				}

			case *brtypes.ConverseStreamOutputMemberMetadata:
				if v.Value.Usage != nil {
					if v.Value.Usage.InputTokens != nil {
						response.Usage.InputTokens = int(*v.Value.Usage.InputTokens)
					}
					if v.Value.Usage.OutputTokens != nil {
						response.Usage.OutputTokens = int(*v.Value.Usage.OutputTokens)
					}
				}
			}
		}
	}
}
