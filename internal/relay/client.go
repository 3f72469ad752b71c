// Package relay forwards speech and companion-reply requests to the hosted providers.
package relay

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

	"go.uber.org/zap"
)

const (
	ProviderSpeech     = "speech"
	ProviderGenerative = "generative"

	OutcomeSuccess       = "success"
	OutcomeUpstreamError = "upstream_error"
	OutcomeEmptyReply    = "empty_reply"
	OutcomeFailure       = "failure"

	defaultTimeout     = 30 * time.Second
	maxUpstreamBodyLen = 16 << 20
)

var (
	errMissingEndpoint = errors.New("relay: provider endpoint is required")
	noOpLogger         = zap.NewNop()
)

// Config carries the provider credentials and the fixed voice settings.
type Config struct {
	TTSAPIKey      string
	GeminiAPIKey   string
	TTSEndpoint    string
	GeminiEndpoint string
	VoiceName      string
	VoiceLanguage  string
	AudioEncoding  string
	SpeakingRate   float64
	Timeout        time.Duration
}

// Observer receives one outcome per upstream call.
type Observer interface {
	ObserveUpstream(provider, outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveUpstream(string, string) {}

// UpstreamError carries a non-2xx provider response so it can be relayed verbatim.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("relay: provider responded with status %d", e.StatusCode)
}

// NewHTTPClient returns the outbound client used for provider calls. No retries are attempted.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

type providerCall struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// post sends payload as JSON and returns the status code and the raw response body.
func (c providerCall) post(ctx context.Context, payload any) (int, []byte, error) {
	if strings.TrimSpace(c.endpoint) == "" {
		return 0, nil, errMissingEndpoint
	}
	target, err := url.Parse(c.endpoint)
	if err != nil {
		return 0, nil, fmt.Errorf("relay: parse endpoint: %w", err)
	}
	query := target.Query()
	query.Set("key", c.apiKey)
	target.RawQuery = query.Encode()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("relay: encode request: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, fmt.Errorf("relay: build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, fmt.Errorf("relay: send request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxUpstreamBodyLen))
	if err != nil {
		return response.StatusCode, nil, fmt.Errorf("relay: read response: %w", err)
	}
	return response.StatusCode, body, nil
}

func successful(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}
