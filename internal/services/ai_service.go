package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/logger"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"

	geminiModel = "gemini-1.5-flash"

	// Telegram bots may download files up to 20 MB
	maxImageBytes = 20 << 20
)

// AIService estimates carbohydrates on a food photo. Gemini is asked first,
// OpenAI is the fallback. Either client may be absent.
type AIService struct {
	geminiClient *genai.Client
	openaiClient *openai.Client
	httpClient   *http.Client
	maxImage     int64
}

// CarbEstimate is the model's answer for one photo.
type CarbEstimate struct {
	FoodItems    []string `json:"food_items"`
	Carbs        float64  `json:"carbs"`
	Confidence   string   `json:"confidence"`
	AnalysisText string   `json:"analysis_text"`
	Provider     string   `json:"-"`
}

func NewAIService(ctx context.Context, geminiAPIKey, openaiAPIKey string) (*AIService, error) {
	s := &AIService{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		maxImage:   maxImageBytes,
	}

	if geminiAPIKey != "" {
		client, err := genai.NewClient(ctx, option.WithAPIKey(geminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
	}
	if openaiAPIKey != "" {
		s.openaiClient = openai.NewClient(openaiAPIKey)
	}
	return s, nil
}

// Enabled reports whether at least one provider is configured.
func (s *AIService) Enabled() bool {
	return s != nil && (s.geminiClient != nil || s.openaiClient != nil)
}

// Close releases the Gemini client.
func (s *AIService) Close() error {
	if s.geminiClient != nil {
		return s.geminiClient.Close()
	}
	return nil
}

const carbPrompt = `You are a certified diabetes educator specializing in nutrition analysis.
Estimate the total digestible carbohydrates (grams) of the whole meal in the image.

REQUIREMENTS:
- Include visible and likely hidden carbohydrate sources
- Consider portion sizes carefully
- If the image contains nutritional information or packaging, prioritize that data
- Food names and analysis text must be in Russian
- Keep the analysis text short: how the estimate was made

Respond with a single JSON object and nothing else:
{
  "food_items": ["item1", "item2"],
  "carbs": 45.5,
  "confidence": "low|medium|high",
  "analysis_text": "..."
}`

// EstimateCarbs asks the configured providers in order and returns the
// first successful answer. The image is downloaded once and sent inline:
// Telegram file URLs carry the bot token and never leave the process.
func (s *AIService) EstimateCarbs(ctx context.Context, imageURL string) (*CarbEstimate, error) {
	if !s.Enabled() {
		return nil, apperrors.NewMissingPrerequisite("AI provider")
	}

	img, err := s.downloadImage(ctx, imageURL)
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "telegram file")
	}

	var errs []string
	if s.geminiClient != nil {
		est, err := s.estimateWithGemini(ctx, img)
		if err == nil {
			est.Provider = providerGemini
			return est, nil
		}
		logger.FromContext(ctx).Warn("Gemini estimate failed, trying fallback", "error", err)
		errs = append(errs, fmt.Sprintf("gemini: %v", err))
	}

	if s.openaiClient != nil {
		est, err := s.estimateWithOpenAI(ctx, img)
		if err == nil {
			est.Provider = providerOpenAI
			return est, nil
		}
		errs = append(errs, fmt.Sprintf("openai: %v", err))
	}

	return nil, apperrors.NewExternalAPIError(fmt.Errorf("%s", strings.Join(errs, "; ")), "carb estimate")
}

// photo is a downloaded image with its detected MIME type.
type photo struct {
	data     []byte
	mimeType string
}

func (s *AIService) downloadImage(ctx context.Context, imageURL string) (*photo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		// the URL holds the bot token, keep it out of the error
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}
	limit := s.maxImage
	if limit <= 0 {
		limit = maxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image is larger than %d bytes", limit)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("unexpected image content type %q", mimeType)
	}
	return &photo{data: data, mimeType: mimeType}, nil
}

func (s *AIService) estimateWithGemini(ctx context.Context, img *photo) (*CarbEstimate, error) {
	model := s.geminiClient.GenerativeModel(geminiModel)
	format := strings.TrimPrefix(img.mimeType, "image/")
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, img.data), genai.Text(carbPrompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return parseCarbEstimate(sb.String())
}

func (s *AIService) estimateWithOpenAI(ctx context.Context, img *photo) (*CarbEstimate, error) {
	dataURL := "data:" + img.mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.data)
	resp, err := s.openaiClient.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4oMini,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{
							Type: openai.ChatMessagePartTypeText,
							Text: carbPrompt,
						},
						{
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL: dataURL,
							},
						},
					},
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response")
	}
	return parseCarbEstimate(resp.Choices[0].Message.Content)
}

func parseCarbEstimate(text string) (*CarbEstimate, error) {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, fmt.Errorf("no valid JSON found in response")
	}
	var est CarbEstimate
	if err := json.Unmarshal([]byte(jsonStr), &est); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if est.Carbs < 0 {
		return nil, fmt.Errorf("negative carbohydrate estimate %.1f", est.Carbs)
	}
	return &est, nil
}

// extractJSON returns the outermost {...} of s, which may be wrapped in a
// code block or surrounding text.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
