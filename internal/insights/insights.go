package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Summary is the anonymised feedback digest sent for analysis.
type Summary struct {
	BusinessName   string
	TotalFeedbacks int
	AverageRatings map[string]float64
	Comments       []string
	Suggestions    []string
}

type Insights struct {
	Improvements []string `json:"improvements"`
	Strengths    []string `json:"strengths"`
}

const maxItems = 5

// Nop returns no insights. It is used when no API key is configured.
type Nop struct{}

func (Nop) Generate(context.Context, Summary) (*Insights, error) {
	return &Insights{}, nil
}

type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(client *openai.Client, model string) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAI{client: client, model: model}
}

const systemPrompt = `You analyse anonymous customer feedback for a small service business.
Reply with a JSON object {"improvements": [...], "strengths": [...]}.
Each list holds at most 5 short, actionable sentences. Do not mention individual customers.`

func (o *OpenAI) Generate(ctx context.Context, s Summary) (*Insights, error) {
	if s.TotalFeedbacks == 0 {
		return &Insights{}, nil
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(s),
			},
		},
		MaxTokens: 600,
	})
	if err != nil {
		return nil, fmt.Errorf("insights request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("insights: no response choices")
	}

	content := resp.Choices[0].Message.Content

	var out Insights
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		slog.Warn("failed to parse insights response", "error", err, "response_length", len(content))
		return nil, fmt.Errorf("parsing insights response: %w", err)
	}

	out.Improvements = clean(out.Improvements)
	out.Strengths = clean(out.Strengths)

	return &out, nil
}

func buildPrompt(s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Business: %s\nFeedback received: %d\n\nAverage ratings (1-5):\n", s.BusinessName, s.TotalFeedbacks)

	cats := make([]string, 0, len(s.AverageRatings))
	for c := range s.AverageRatings {
		cats = append(cats, c)
	}

	sort.Strings(cats)

	for _, c := range cats {
		fmt.Fprintf(&b, "- %s: %.2f\n", c, s.AverageRatings[c])
	}

	writeList(&b, "Comments", s.Comments)
	writeList(&b, "Suggestions", s.Suggestions)

	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}

	fmt.Fprintf(b, "\n%s:\n", title)

	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func clean(items []string) []string {
	out := make([]string, 0, len(items))

	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}

		if len(out) == maxItems {
			break
		}
	}

	return out
}
