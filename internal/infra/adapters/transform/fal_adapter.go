package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TransformAdapter = (*FalAdapter)(nil)

// FalAdapter implements adapter.TransformAdapter against fal.ai's queue API.
// Base URL defaults to https://queue.fal.run (configurable).
// Submit: POST {base}/{model} -> request_id; then poll the status endpoint
// until COMPLETED and fetch the response, which carries the result image URL.
// Authorization: Key <FAL_KEY>
type FalAdapter struct {
	apiKey string
	base   string
	model  string
	client *http.Client

	pollInterval time.Duration
}

func NewFalAdapter(apiKey, model, base string) (*FalAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("fal api key empty")
	}
	if model == "" {
		model = "fal-ai/flux-pro/kontext/max"
	}
	if base == "" {
		base = "https://queue.fal.run"
	}
	return &FalAdapter{
		apiKey:       apiKey,
		base:         strings.TrimRight(base, "/"),
		model:        model,
		client:       &http.Client{Timeout: 90 * time.Second},
		pollInterval: time.Second,
	}, nil
}

func (f *FalAdapter) Name() string { return "fal" }

func (f *FalAdapter) Transform(ctx context.Context, imageURL, instruction string) (*adapter.TransformResult, error) {
	reqID, err := f.submit(ctx, imageURL, instruction)
	if err != nil {
		return nil, err
	}
	if err := f.await(ctx, reqID); err != nil {
		return nil, err
	}
	resultURL, err := f.result(ctx, reqID)
	if err != nil {
		return nil, err
	}
	data, ctype, err := f.download(ctx, resultURL)
	if err != nil {
		return nil, err
	}
	return &adapter.TransformResult{Data: data, ContentType: ctype, ProviderRef: resultURL}, nil
}

func (f *FalAdapter) submit(ctx context.Context, imageURL, instruction string) (string, error) {
	payload := map[string]any{
		"prompt":    instruction,
		"image_url": imageURL,
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, f.base+"/"+f.model, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return "", fmt.Errorf("fal submit http %d: %w", resp.StatusCode, err)
	}
	var out struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("fal submit decode: %w", domain.ErrTransformUnavailable)
	}
	if out.RequestID == "" {
		return "", fmt.Errorf("fal submit: empty request id: %w", domain.ErrTransformUnavailable)
	}
	return out.RequestID, nil
}

func (f *FalAdapter) await(ctx context.Context, reqID string) error {
	statusURL := fmt.Sprintf("%s/%s/requests/%s/status", f.base, f.model, reqID)
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("fal await: %w", domain.ErrTransformTimeout)
		case <-ticker.C:
		}

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		req.Header.Set("Authorization", "Key "+f.apiKey)
		resp, err := f.client.Do(req)
		if err != nil {
			return classifyTransport(err)
		}
		var out struct {
			Status string `json:"status"`
		}
		decErr := json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err := classifyStatus(resp.StatusCode); err != nil {
			return fmt.Errorf("fal status http %d: %w", resp.StatusCode, err)
		}
		if decErr != nil {
			return fmt.Errorf("fal status decode: %w", domain.ErrTransformUnavailable)
		}
		switch out.Status {
		case "COMPLETED":
			return nil
		case "IN_QUEUE", "IN_PROGRESS":
			// keep polling
		default:
			return fmt.Errorf("fal status %q: %w", out.Status, domain.ErrTransformRejected)
		}
	}
}

func (f *FalAdapter) result(ctx context.Context, reqID string) (string, error) {
	respURL := fmt.Sprintf("%s/%s/requests/%s", f.base, f.model, reqID)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, respURL, nil)
	req.Header.Set("Authorization", "Key "+f.apiKey)
	resp, err := f.client.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return "", fmt.Errorf("fal result http %d: %w", resp.StatusCode, err)
	}
	var out struct {
		Images []struct {
			URL         string `json:"url"`
			ContentType string `json:"content_type"`
		} `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("fal result decode: %w", domain.ErrTransformUnavailable)
	}
	if len(out.Images) == 0 || out.Images[0].URL == "" {
		return "", fmt.Errorf("fal result: no images: %w", domain.ErrTransformRejected)
	}
	return out.Images[0].URL, nil
}

func (f *FalAdapter) download(ctx context.Context, resultURL string) ([]byte, string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", classifyTransport(err)
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, "", fmt.Errorf("fal download http %d: %w", resp.StatusCode, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", classifyTransport(err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("fal download: empty body: %w", domain.ErrTransformUnavailable)
	}
	ctype := resp.Header.Get("Content-Type")
	if ctype == "" {
		ctype = "image/jpeg"
	}
	return data, ctype, nil
}

// classifyTransport maps network-level failures onto the error taxonomy.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, domain.ErrTransformTimeout)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%v: %w", err, domain.ErrTransformTimeout)
	}
	return fmt.Errorf("%v: %w", err, domain.ErrTransformUnavailable)
}

// classifyStatus maps HTTP status classes onto the error taxonomy: client
// errors mean the input was refused, everything else transient.
func classifyStatus(code int) error {
	switch {
	case code < 300:
		return nil
	case code >= 400 && code < 500:
		return domain.ErrTransformRejected
	default:
		return domain.ErrTransformUnavailable
	}
}
