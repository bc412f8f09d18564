package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ibeckermayer/sentigraph/internal/store"
)

const providerAnthropic = "anthropic"

// Anthropic scores texts with a Claude model
type Anthropic struct {
	client   *anthropic.Client
	model    string
	cacheDir string // where prompt/response pairs are kept; empty disables caching
}

// NewAnthropic creates a new Anthropic scorer
func NewAnthropic(apiKey, model, cacheDir string) *Anthropic {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &Anthropic{
		client:   &client,
		model:    model,
		cacheDir: cacheDir,
	}
}

// Score scores a single text.
func (a *Anthropic) Score(ctx context.Context, text string) (float64, error) {
	scores, err := a.ScoreBatch(ctx, []string{text})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

// ScoreBatch sends texts to Claude in one request.
func (a *Anthropic) ScoreBatch(ctx context.Context, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	prompt := buildPrompt(texts)

	// Prefill "[" so the answer continues as a JSON array
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(64 + 24*len(texts)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock("[")),
		},
	})
	if err != nil {
		a.record(prompt, len(texts), "", err)
		return nil, fmt.Errorf("failed to call Claude API: %w", err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	a.record(prompt, len(texts), responseText, nil)

	if responseText == "" {
		return nil, fmt.Errorf("Claude returned empty response")
	}

	return ParseScoreResponse("["+responseText, len(texts))
}

// record keeps the exchange under the cache dir; write failures are ignored.
func (a *Anthropic) record(prompt string, texts int, response string, callErr error) {
	if a.cacheDir == "" {
		return
	}
	ex := store.ScoreExchange{
		Timestamp: time.Now(),
		Provider:  providerAnthropic,
		Model:     a.model,
		Texts:     texts,
		Prompt:    prompt,
		Response:  response,
	}
	if callErr != nil {
		ex.Error = callErr.Error()
	}
	_, _ = store.SaveScoreExchange(a.cacheDir, ex)
}
