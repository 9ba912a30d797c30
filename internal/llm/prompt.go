// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package llm provides the model services the binding engine calls for
// line-number correction: AWS Bedrock ConverseStream and any
// OpenAI-compatible chat completion endpoint.
package llm

import (
	"github.com/petar-djukic/filebind/pkg/types"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// bedrockConversation converts history plus the new prompt into the
// Bedrock request shape. System messages move to the separate system
// field; the prompt becomes the final user message.
func bedrockConversation(prompt string, history []types.Message) ([]brtypes.SystemContentBlock, []brtypes.Message) {
	var system []brtypes.SystemContentBlock
	var messages []brtypes.Message

	for _, m := range history {
		switch m.Role {
		case types.RoleSystem:
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Content})
		case types.RoleAssistant:
			messages = append(messages, assistantMessage(m.Content))
		default:
			messages = append(messages, userMessage(m.Content))
		}
	}
	messages = append(messages, userMessage(prompt))

	return system, messages
}

// userMessage creates a user message with text content.
func userMessage(text string) brtypes.Message {
	return brtypes.Message{
		Role: brtypes.ConversationRoleUser,
		Content: []brtypes.ContentBlock{
			&brtypes.ContentBlockMemberText{Value: text},
		},
	}
}

// assistantMessage creates an assistant message with text content.
func assistantMessage(text string) brtypes.Message {
	return brtypes.Message{
		Role: brtypes.ConversationRoleAssistant,
		Content: []brtypes.ContentBlock{
			&brtypes.ContentBlockMemberText{Value: text},
		},
	}
}
