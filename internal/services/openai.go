// OpenAI implementation of [Generator] and [Embedder]
package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	defaultGenerationModel = "gpt-4o"
	defaultEmbeddingModel  = string(openai.EmbeddingModelTextEmbedding3Small)
	defaultEmbeddingDim    = 1536
	defaultMaxTokens       = 1000
)

// OpenAIService wraps the OpenAI API for both multimodal generation and text
// embeddings.
//
// A single Generate call is one request with no retries; the retry engine owns
// the attempt budget.
type OpenAIService struct {
	client         openai.Client
	model          string
	embeddingModel string
	maxTokens      int64
	dimension      int
}

// OpenAIOption customizes an OpenAIService.
type OpenAIOption func(*OpenAIService)

// WithGenerationModel overrides the chat model.
func WithGenerationModel(model string) OpenAIOption {
	return func(s *OpenAIService) {
		if model != "" {
			s.model = model
		}
	}
}

// WithEmbeddingModel overrides the embedding model and its dimensionality.
func WithEmbeddingModel(model string, dimension int) OpenAIOption {
	return func(s *OpenAIService) {
		if model != "" {
			s.embeddingModel = model
		}
		if dimension > 0 {
			s.dimension = dimension
		}
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int64) OpenAIOption {
	return func(s *OpenAIService) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithBaseURL points the client at a different endpoint, used in tests.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(s *OpenAIService) {
		s.client = openai.NewClient(
			option.WithAPIKey("test"),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		)
	}
}

// NewOpenAIService creates an OpenAI client for generation and embeddings.
func NewOpenAIService(apiKey string, opts ...OpenAIOption) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api_key", shared.ErrMissingCredentials)
	}

	service := &OpenAIService{
		client:         openai.NewClient(option.WithAPIKey(apiKey)),
		model:          defaultGenerationModel,
		embeddingModel: defaultEmbeddingModel,
		maxTokens:      defaultMaxTokens,
		dimension:      defaultEmbeddingDim,
	}
	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

func (s *OpenAIService) Name() string {
	return "OpenAI"
}

// Generate issues a single chat completion, attaching the image as a base64
// data URL when present. The image stream is read fully and rewound, so the
// same Image can be passed to further calls.
func (s *OpenAIService) Generate(ctx context.Context, prompt string, image *models.Image, temperature float64) (string, error) {
	var message openai.ChatCompletionMessageParamUnion

	if image != nil && image.Reader != nil {
		dataURL, err := encodeImage(image)
		if err != nil {
			return "", err
		}
		message = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL,
			}),
		})
	} else {
		message = openai.UserMessage(prompt)
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(s.model),
		Messages:            []openai.ChatCompletionMessageParamUnion{message},
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(s.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", shared.ErrGenerationFailed)
	}

	return resp.Choices[0].Message.Content, nil
}

// EmbedTexts embeds a batch of texts in order.
func (s *OpenAIService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := s.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(s.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrEmbeddingFailed, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", shared.ErrEmbeddingFailed, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		vectors[int(item.Index)] = vec
	}

	return vectors, nil
}

func (s *OpenAIService) Dimension() int {
	return s.dimension
}

func (s *OpenAIService) Model() string {
	return s.embeddingModel
}

// encodeImage reads the image stream, rewinds it, and renders the bytes as a
// data URL.
func encodeImage(image *models.Image) (string, error) {
	data, err := io.ReadAll(image.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if _, err := image.Reader.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", shared.ErrInvalidInput)
	}

	return fmt.Sprintf("data:%s;base64,%s", image.MIMEType(), base64.StdEncoding.EncodeToString(data)), nil
}
