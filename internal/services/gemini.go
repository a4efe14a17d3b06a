package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/underwriting-intake/internal/config"
	"alfredoptarigan/underwriting-intake/internal/models"
)

const (
	extractionTemperature    float32 = 0.3
	transcriptionTemperature float32 = 0
	maxEmbeddingChars                = 40000
)

// Embedder turns text into a dense vector for nearest-neighbour lookup.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type GeminiService interface {
	Embedder
	ImageTranscriber
	ConditionExtractor
	GenerateText(ctx context.Context, prompt string, temperature float32, jsonOutput bool) (string, error)
	GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error)
}

type geminiService struct {
	client       *genai.Client
	modelName    string
	embedModel   string
	prompts      *PromptBuilder
	maxTextChars int
	log          *zap.Logger
}

func NewGeminiService(cfg config.GeminiConfig, maxTextChars int, log *zap.Logger) (GeminiService, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:       client,
		modelName:    cfg.Model,
		embedModel:   cfg.EmbedModel,
		prompts:      NewPromptBuilder(),
		maxTextChars: maxTextChars,
		log:          log.Named("gemini"),
	}, nil
}

func (g *geminiService) Name() string {
	return "gemini"
}

// GenerateEmbedding implements Embedder.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	text = truncateRunes(text, maxEmbeddingChars)

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateText implements GeminiService.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32, jsonOutput bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}
	if jsonOutput {
		cfg.ResponseMIMEType = "application/json"
		cfg.SystemInstruction = genai.NewContentFromText(g.prompts.SystemPrompt(), genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		g.log.Warn("Gemini API error", zap.Error(err))
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	return g.responseText(resp)
}

// GenerateTextWithRetry implements GeminiService.
func (g *geminiService) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, err := g.GenerateText(ctx, prompt, temperature, true)
		if err == nil {
			return result, nil
		}

		lastErr = err

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if attempt < maxRetries {
			g.log.Warn("Gemini attempt failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// TranscribeImage implements ImageTranscriber.
func (g *geminiService) TranscribeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(g.prompts.BuildImageTranscriptionPrompt()),
			genai.NewPartFromBytes(data, mimeType),
		}, genai.RoleUser),
	}

	temperature := transcriptionTemperature
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 2000,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe image: %w", err)
	}

	return g.responseText(resp)
}

// ExtractConditions implements ConditionExtractor.
func (g *geminiService) ExtractConditions(ctx context.Context, text string) ([]models.ExtractedTerm, error) {
	prompt := g.prompts.BuildConditionExtractionPrompt(text, g.maxTextChars)

	response, err := g.GenerateTextWithRetry(ctx, prompt, extractionTemperature, 2)
	if err != nil {
		return nil, err
	}

	terms, err := parseConditionsResponse(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gemini conditions: %w", err)
	}

	g.log.Debug("Gemini extracted conditions", zap.Int("count", len(terms)))
	return terms, nil
}

func (g *geminiService) responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			return "", fmt.Errorf("no text content in response (finish reason %s)", resp.Candidates[0].FinishReason)
		}
		return "", fmt.Errorf("no text content in response")
	}

	return text, nil
}
