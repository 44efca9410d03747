package transform

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TransformAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.TransformAdapter using the Images Edit
// API. Unlike fal, OpenAI takes the source image as an upload and returns
// the artifact inline as base64, so no result download is needed.
type OpenAIAdapter struct {
	client openai.Client
	model  string
	fetch  *http.Client
}

func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-image-1"
	}
	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		fetch:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) Transform(ctx context.Context, imageURL, instruction string) (*adapter.TransformResult, error) {
	data, ctype, err := o.fetchSource(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	res, err := o.client.Images.Edit(ctx, openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFile: openai.File(bytes.NewReader(data), "source.png", ctype),
		},
		Prompt: instruction,
		Model:  openai.ImageModel(o.model),
	})
	if err != nil {
		return nil, classifyOpenAI(err)
	}
	if len(res.Data) == 0 || res.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai edit: no image returned: %w", domain.ErrTransformRejected)
	}
	out, err := base64.StdEncoding.DecodeString(res.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai edit decode: %w", domain.ErrTransformUnavailable)
	}
	return &adapter.TransformResult{Data: out, ContentType: "image/png", ProviderRef: "images.edit"}, nil
}

func (o *OpenAIAdapter) fetchSource(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	resp, err := o.fetch.Do(req)
	if err != nil {
		return nil, "", classifyTransport(err)
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, "", fmt.Errorf("fetch source http %d: %w", resp.StatusCode, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", classifyTransport(err)
	}
	ctype := resp.Header.Get("Content-Type")
	if ctype == "" {
		ctype = "image/png"
	}
	return data, ctype, nil
}

func classifyOpenAI(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, domain.ErrTransformTimeout)
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if err := classifyStatus(apierr.StatusCode); err != nil {
			return fmt.Errorf("openai http %d: %w", apierr.StatusCode, err)
		}
	}
	return fmt.Errorf("%v: %w", err, domain.ErrTransformUnavailable)
}
