package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/sawnaing/saye/transcript"
)

// SummarizeSegments asks OpenAI for a short narrative synopsis of the
// given transcript segments.
func SummarizeSegments(ctx context.Context, openaiAPIKey string, segments []transcript.Segment) (string, error) {
	if len(segments) == 0 {
		return "Nothing transcribed yet today", nil
	}

	var formatted strings.Builder
	for _, seg := range segments {
		formatted.WriteString(
			fmt.Sprintf("%s: %s\n", seg.CapturedAt.Format("15:04:05"), seg.Text),
		)
	}

	client := openai.NewClient(openaiAPIKey)

	req := openai.ChatCompletionRequest{
		Model:     openai.GPT4o,
		MaxTokens: 500,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "The following is a transcript of Burmese (Myanmar language) speech. " +
					"Summarize the main points as short bullet paragraphs in both Burmese and English. " +
					"Keep it faithful to what was said and not too long.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: formatted.String(),
			},
		},
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	return resp.Choices[0].Message.Content, nil
}
