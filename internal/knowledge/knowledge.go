// Package knowledge answers general questions about council services, using
// the chat model grounded on the MBPP knowledge base.
package knowledge

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// FallbackAnswer is returned when the question cannot be answered from the
// knowledge base or the model is unreachable.
const FallbackAnswer = "I don't have information about that in the MBPP knowledge base."

const systemPrompt = `You are an assistant for Majlis Bandaraya Pulau Pinang (MBPP), the Penang Island City Council.
Answer questions about council services: licensing, assessment tax, parking, public facilities, waste collection schedules and complaint procedures.
Answer concisely in the language the user writes in.
If the question is outside MBPP's scope or you are not sure, say you don't have that information.`

// Answerer answers free-form questions about council services
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// OpenAIAnswerer answers questions with the OpenAI chat API
type OpenAIAnswerer struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIAnswerer creates an OpenAI-backed answerer
func NewOpenAIAnswerer(apiKey, model string, temperature float32, logger *zap.Logger) *OpenAIAnswerer {
	return &OpenAIAnswerer{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// Answer returns a knowledge-base answer for the question. Model failures
// degrade to the fallback answer rather than failing the turn.
func (a *OpenAIAnswerer) Answer(ctx context.Context, question string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   400,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		a.logger.Warn("Knowledge answer unavailable", zap.Error(err))
		return FallbackAnswer, nil
	}
	if len(resp.Choices) == 0 {
		return FallbackAnswer, nil
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return FallbackAnswer, nil
	}
	return answer, nil
}

// Static answers every question with a fixed reply. Used in tests and when no
// API key is configured.
type Static struct {
	Reply string
}

// Answer returns the configured reply
func (s *Static) Answer(_ context.Context, _ string) (string, error) {
	if s.Reply == "" {
		return FallbackAnswer, nil
	}
	return s.Reply, nil
}
