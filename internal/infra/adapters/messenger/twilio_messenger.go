package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"whatsapp-image-bot/internal/config"
	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/ports/adapter"
)

var _ adapter.Messenger = (*TwilioMessenger)(nil)

// TwilioMessenger sends WhatsApp replies through Twilio's Messages API and
// fetches inbound media, which Twilio hosts behind basic auth.
type TwilioMessenger struct {
	accountSID string
	authToken  string
	from       string
	base       string
	client     *http.Client
}

func NewTwilioMessenger(cfg *config.WhatsAppConfig) (*TwilioMessenger, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio credentials not configured")
	}
	if cfg.FromNumber == "" {
		return nil, errors.New("twilio from number empty")
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.twilio.com"
	}
	return &TwilioMessenger{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       ensureChannelPrefix(cfg.FromNumber),
		base:       strings.TrimRight(base, "/"),
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func ensureChannelPrefix(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (t *TwilioMessenger) Send(ctx context.Context, to, text, mediaURL string) error {
	form := url.Values{}
	form.Set("To", ensureChannelPrefix(to))
	form.Set("From", t.from)
	form.Set("Body", text)
	if mediaURL != "" {
		form.Set("MediaUrl", mediaURL)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.base, t.accountSID)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var out struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return fmt.Errorf("twilio send http %d (code %d): %s", resp.StatusCode, out.Code, out.Message)
	}
	return nil
}

// FetchMedia downloads an inbound media object with account credentials.
// Guards against non-image content sneaking into the pipeline.
func (t *TwilioMessenger) FetchMedia(ctx context.Context, mediaURL string) ([]byte, string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("twilio media fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("twilio media fetch http %d", resp.StatusCode)
	}

	ctype := strings.ToLower(strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0]))
	if !strings.HasPrefix(ctype, "image/") {
		return nil, "", fmt.Errorf("media type %q: %w", ctype, domain.ErrUnsupportedMedia)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("twilio media read: %w", err)
	}
	return data, ctype, nil
}

// NeedsRehost reports whether the URL is Twilio-hosted and therefore not
// reachable by the transform service without re-hosting.
func (t *TwilioMessenger) NeedsRehost(mediaURL string) bool {
	return strings.HasPrefix(mediaURL, "https://api.twilio.com") ||
		strings.HasPrefix(mediaURL, t.base)
}
