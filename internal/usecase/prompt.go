package usecase

import (
	"strings"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
)

// DefaultSystemPrompt is sent when the caller supplies no system prompt.
const DefaultSystemPrompt = "You are a helpful assistant."

// RetryPrompt replaces replies that carried no usable text.
const RetryPrompt = "I'm not sure how to respond to that. Could you try asking again?"

func resolveSystemPrompt(systemPrompt string) string {
	if strings.TrimSpace(systemPrompt) == "" {
		return DefaultSystemPrompt
	}
	return strings.TrimSpace(systemPrompt)
}

func buildCompletionRequest(cfg ChatConfig, systemPrompt, message string) domain.CompletionRequest {
	return domain.CompletionRequest{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		System:    resolveSystemPrompt(systemPrompt),
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: message},
		},
	}
}
