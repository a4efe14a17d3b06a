package services

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/config"
	"alfredoptarigan/underwriting-intake/internal/models"
)

// chatCompleter is the slice of the OpenAI client this package calls.
type chatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type openAIConditionExtractor struct {
	chat         chatCompleter
	model        string
	prompts      *PromptBuilder
	maxTextChars int
	log          *zap.Logger
}

func NewOpenAIConditionExtractor(cfg config.OpenAIConfig, maxTextChars int, log *zap.Logger) ConditionExtractor {
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return newOpenAIConditionExtractor(&client.Chat.Completions, cfg.Model, maxTextChars, log)
}

func newOpenAIConditionExtractor(chat chatCompleter, model string, maxTextChars int, log *zap.Logger) *openAIConditionExtractor {
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &openAIConditionExtractor{
		chat:         chat,
		model:        model,
		prompts:      NewPromptBuilder(),
		maxTextChars: maxTextChars,
		log:          log.Named("openai"),
	}
}

func (o *openAIConditionExtractor) Name() string {
	return "openai"
}

// ExtractConditions implements ConditionExtractor.
func (o *openAIConditionExtractor) ExtractConditions(ctx context.Context, text string) ([]models.ExtractedTerm, error) {
	resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.prompts.SystemPrompt()),
			openai.UserMessage(o.prompts.BuildConditionExtractionPrompt(text, o.maxTextChars)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(float64(extractionTemperature)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	terms, err := parseConditionsResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse openai conditions: %w", err)
	}

	o.log.Debug("OpenAI extracted conditions", zap.Int("count", len(terms)))
	return terms, nil
}
