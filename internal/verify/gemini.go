package verify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30
	geminiOutputPricePerMillion = 2.50
)

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

// InferenceResponse is the raw model output for one verification prompt.
type InferenceResponse struct {
	Text  string
	Usage Usage
}

// Inferencer sends a prompt with an inline image to a multimodal model.
type Inferencer interface {
	Infer(ctx context.Context, prompt string, image *ImagePayload) (*InferenceResponse, error)
}

// GeminiInferencer uses Google's Gemini API for product verification.
type GeminiInferencer struct {
	client     *genai.Client
	model      string
	structured bool
}

// NewGeminiInferencer creates a new Gemini-based inferencer. With structured
// set, responses are constrained to the verification JSON schema.
func NewGeminiInferencer(ctx context.Context, apiKey, model string, structured bool) (*GeminiInferencer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiInferencer{client: client, model: model, structured: structured}, nil
}

// Infer implements the Inferencer interface using Gemini.
func (g *GeminiInferencer) Infer(ctx context.Context, prompt string, image *ImagePayload) (*InferenceResponse, error) {
	imgData, err := image.Bytes()
	if err != nil {
		return nil, &InferenceError{Model: g.model, Err: fmt.Errorf("failed to decode image: %w", err)}
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		{InlineData: &genai.Blob{Data: imgData, MIMEType: image.MIMEType}},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	var config *genai.GenerateContentConfig
	if g.structured {
		config = &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   verificationSchema(),
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, &InferenceError{Model: g.model, Err: fmt.Errorf("failed to generate content: %w", err)}
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, &InferenceError{Model: g.model, Err: fmt.Errorf("no response from Gemini")}
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens)
	}

	log.Info().
		Str("model", g.model).
		Bool("structured", g.structured).
		Int("imageBytes", len(imgData)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("verification llm call")

	return &InferenceResponse{Text: result.Text(), Usage: usage}, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}

// verificationSchema describes the JSON object the model must return.
func verificationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"isValid": {
				Type:        genai.TypeBoolean,
				Description: "Ürün ilanı kriterleri karşılıyor mu",
			},
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "0 ile 1 arasında güven skoru",
			},
			"reason": {
				Type:        genai.TypeString,
				Description: "Kısa Türkçe açıklama",
			},
			"autoApproved": {
				Type: genai.TypeBoolean,
			},
		},
		Required:         []string{"isValid", "confidence", "reason"},
		PropertyOrdering: []string{"isValid", "confidence", "reason", "autoApproved"},
	}
}
