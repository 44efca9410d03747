// File: internal/infra/adapters/transform/gemini_adapter.go
package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/ports/adapter"
)

var _ adapter.TransformAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter implements adapter.TransformAdapter using the official SDK
// with an image-capable model. The source image is sent inline with the
// instruction; the edited image comes back as inline data.
type GeminiAdapter struct {
	client *genai.Client
	model  string
	fetch  *http.Client
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{
		client: c,
		model:  model,
		fetch:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) Transform(ctx context.Context, imageURL, instruction string) (*adapter.TransformResult, error) {
	data, ctype, err := g.fetchSource(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: instruction},
			{InlineData: &genai.Blob{MIMEType: ctype, Data: data}},
		},
	}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, classifyGemini(err)
	}

	// The edited image is the first inline-data part in the reply.
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.InlineData != nil && len(p.InlineData.Data) > 0 {
				out := p.InlineData.MIMEType
				if out == "" {
					out = "image/png"
				}
				return &adapter.TransformResult{
					Data:        p.InlineData.Data,
					ContentType: out,
					ProviderRef: g.model,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini: no image in response: %w", domain.ErrTransformRejected)
}

func (g *GeminiAdapter) fetchSource(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	resp, err := g.fetch.Do(req)
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
		ctype = "image/jpeg"
	}
	return data, ctype, nil
}

func classifyGemini(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, domain.ErrTransformTimeout)
	}
	// The SDK surfaces HTTP failures as APIError with a status code.
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		if cerr := classifyStatus(apierr.Code); cerr != nil {
			return fmt.Errorf("gemini http %d: %w", apierr.Code, cerr)
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "safety") {
		return fmt.Errorf("%v: %w", err, domain.ErrTransformRejected)
	}
	return fmt.Errorf("%v: %w", err, domain.ErrTransformUnavailable)
}
