package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Categorizer suggests expense categories from a receipt image using the
// Vision API. It is a best-effort collaborator: the caller treats any
// error as a non-fatal notification and falls back to manual entry.
type Categorizer struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// NewCategorizer creates a new receipt categorizer
func NewCategorizer(apiKey, model string, temperature float32, timeout time.Duration, logger *zap.Logger) *Categorizer {
	return &Categorizer{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

type categorySuggestions struct {
	Categories []string `json:"categories"`
}

// SuggestCategories returns an ordered list of suggested category labels
// for the receipt. The list may be empty but is never nil on success.
// mediaType is the declared media type of the payload; PDF receipts are
// rasterized page by page before the Vision call.
func (c *Categorizer) SuggestCategories(ctx context.Context, payload []byte, mediaType string) ([]string, error) {
	images, err := receiptImages(payload, mediaType, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare receipt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contentParts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: categorizationPrompt,
	}}
	for _, img := range images {
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(img)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: categorizationSystemPrompt,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}

	content := resp.Choices[0].Message.Content

	var result categorySuggestions
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		// Fallback: some models wrap the JSON in markdown code fences
		if jsonStr := extractJSON(content); jsonStr != "" {
			if err := json.Unmarshal([]byte(jsonStr), &result); err == nil {
				return nonNil(result.Categories), nil
			}
		}

		c.logger.Error("Failed to parse categorization response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.Info("Receipt categorized",
		zap.Int("suggestions", len(result.Categories)))
	return nonNil(result.Categories), nil
}

// extractJSON pulls a JSON object out of a markdown code block
func extractJSON(content string) string {
	start := strings.Index(content, "```json")
	if start == -1 {
		start = strings.Index(content, "```")
		if start == -1 {
			return ""
		}
		start += 3
	} else {
		start += 7
	}

	end := strings.Index(content[start:], "```")
	if end == -1 {
		return ""
	}

	return strings.TrimSpace(content[start : start+end])
}

func nonNil(categories []string) []string {
	if categories == nil {
		return []string{}
	}
	return categories
}
