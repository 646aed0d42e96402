package classifier

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClassifier implements Classifier using the OpenAI chat API for the
// generative capabilities (extraction, hazard question) and the local keyword
// tables for intent detection and category classification, matching the split
// in the source system.
type OpenAIClassifier struct {
	client      *openai.Client
	rules       *Rules
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIClassifier creates an OpenAI-backed classifier
func NewOpenAIClassifier(apiKey, model string, temperature float32, logger *zap.Logger) *OpenAIClassifier {
	return &OpenAIClassifier{
		client:      openai.NewClient(apiKey),
		rules:       NewRules(),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// DetectIntentKeywords delegates to the keyword tables; intent routing must
// stay deterministic regardless of model availability.
func (c *OpenAIClassifier) DetectIntentKeywords(ctx context.Context, text string) (IntentKeywords, error) {
	return c.rules.DetectIntentKeywords(ctx, text)
}

// ExtractDescriptionAndLocation asks the model to pull a specific street
// address or area from the message. The user's exact message is kept as the
// description.
func (c *OpenAIClassifier) ExtractDescriptionAndLocation(ctx context.Context, text string) (Extraction, error) {
	prompt := fmt.Sprintf(`Extract ONLY the specific location/address from this message:
%q

A valid Malaysian location MUST include AT LEAST ONE of:
- Specific street name with prefix: Jalan/Lorong/Lebuh/Persiaran + street name
- Specific area/place name: Georgetown, Bayan Lepas, Tanjung Tokong, etc.
- Postal code: 5 digits

Do NOT extract generic terms like "main road", "the road" or descriptive words.
If NO specific location is mentioned, respond with an empty string.
Respond with ONLY the location or empty string, nothing else.`, text)

	content, err := c.complete(ctx, prompt, 100)
	if err != nil {
		c.logger.Warn("Location extraction unavailable", zap.Error(err))
		return Extraction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	location := strings.TrimSpace(content)
	if strings.EqualFold(location, "empty string") {
		location = ""
	}

	return Extraction{
		Description: strings.TrimSpace(text),
		Location:    location,
	}, nil
}

// GenerateHazardQuestion asks the model for a short yes/no hazard question
// tailored to the incident description.
func (c *OpenAIClassifier) GenerateHazardQuestion(ctx context.Context, description string) (string, error) {
	prompt := fmt.Sprintf(`Based on this incident: %q

Generate a short yes/no question asking if it's causing immediate danger or blocking access. Keep it under 15 words.
Examples:
- "Is it blocking the road?"
- "Is it causing immediate danger?"

Respond with ONLY the question, nothing else.`, description)

	content, err := c.complete(ctx, prompt, 50)
	if err != nil {
		c.logger.Warn("Hazard question generation unavailable", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	question := strings.TrimSpace(content)
	if question == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return question, nil
}

// ClassifyCategory delegates to the keyword tables
func (c *OpenAIClassifier) ClassifyCategory(ctx context.Context, description string) (Category, error) {
	return c.rules.ClassifyCategory(ctx, description)
}

func (c *OpenAIClassifier) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return resp.Choices[0].Message.Content, nil
}
