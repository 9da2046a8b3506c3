package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider scores articles with a chat model instead of the remote
// ML service. Useful where the scoring service is not deployed; the
// contract to the orchestrator is identical.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates the provider. The API key is required; the
// model defaults to gpt-4o-mini.
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Name identifies the provider.
func (p *OpenAIProvider) Name() string { return "openai" }

const scoringSystemPrompt = `You rate news articles for credibility. Reply with ONLY a JSON object
{"M":<0..1>,"F":<0..1>,"C":<0..1>} where M rates how the text is written
(neutral, readable prose scores high), F rates how verifiable its claims
are, and C rates contextual trustworthiness of headline and framing.
No prose, no markdown.`

// Score asks the model for the three sub-scores.
func (p *OpenAIProvider) Score(ctx context.Context, req Request) (Scores, error) {
	user := fmt.Sprintf("URL: %s\nTitle: %s\nSource: %s\n\n%s", req.URL, req.Title, req.Source, req.Text)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scoringSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   100,
		Temperature: 0,
	})
	if err != nil {
		return Scores{}, fmt.Errorf("openai scorer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Scores{}, fmt.Errorf("openai scorer: empty response")
	}

	return parseScoresJSON(resp.Choices[0].Message.Content)
}

// parseScoresJSON extracts the score object from the model reply,
// tolerating stray text around the JSON.
func parseScoresJSON(content string) (Scores, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Scores{}, fmt.Errorf("no JSON object in model reply")
	}

	var s Scores
	if err := json.Unmarshal([]byte(content[start:end+1]), &s); err != nil {
		return Scores{}, fmt.Errorf("decode model reply: %w", err)
	}
	return s.Clamped(), nil
}
