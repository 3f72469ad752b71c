package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// FallbackReply answers when the provider returned no usable text.
	FallbackReply = "I am here with you and you are doing your best and remember as they win or learn"
	// FailureReply answers when the provider could not be reached or decoded.
	FailureReply = "I am here with you and things can feel lighter with time and remember as they win or learn"

	replyPath = "candidates.0.content.parts.0.text"
)

const companionPrompt = `You are a calm empathetic mental health companion

STRICT RULES YOU MUST FOLLOW
- Write ONLY ONE single long sentence
- Do NOT use full stops commas semicolons colons question marks or line breaks
- Do NOT split thoughts into multiple sentences
- Be polite gentle and supportive
- Acknowledge the users feelings
- Give a simple practical suggestion
- End the same sentence with a short motivational quote like as they win or learn

User message
"%s"`

// ErrEmptyReply reports a decodable provider response without candidate text.
var ErrEmptyReply = errors.New("relay: provider returned no reply text")

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Role  string         `json:"role"`
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

// BuildPrompt embeds the user's message in the companion prompt.
func BuildPrompt(text string) string {
	return fmt.Sprintf(companionPrompt, text)
}

// GenerativeClientConfig wires the generative-text client.
type GenerativeClientConfig struct {
	Relay      Config
	HTTPClient *http.Client
	Observer   Observer
	Logger     *zap.Logger
}

// GenerativeClient asks the generative-text provider for a one-sentence companion reply.
type GenerativeClient struct {
	call     providerCall
	observer Observer
	logger   *zap.Logger
}

// NewGenerativeClient constructs a GenerativeClient.
func NewGenerativeClient(cfg GenerativeClientConfig) *GenerativeClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Relay.Timeout)
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &GenerativeClient{
		call: providerCall{
			httpClient: httpClient,
			endpoint:   cfg.Relay.GeminiEndpoint,
			apiKey:     cfg.Relay.GeminiAPIKey,
		},
		observer: observer,
		logger:   logger,
	}
}

// Reply returns the first candidate's text. Any decodable response without text, including
// provider error bodies, yields ErrEmptyReply.
func (c *GenerativeClient) Reply(ctx context.Context, text string) (string, error) {
	statusCode, body, err := c.call.post(ctx, generateRequest{
		Contents: []generateContent{{
			Role:  "user",
			Parts: []generatePart{{Text: BuildPrompt(text)}},
		}},
	})
	if err != nil {
		c.observer.ObserveUpstream(ProviderGenerative, OutcomeFailure)
		return "", err
	}
	if !gjson.ValidBytes(body) {
		c.observer.ObserveUpstream(ProviderGenerative, OutcomeFailure)
		return "", fmt.Errorf("relay: generative response with status %d is not JSON", statusCode)
	}

	reply := gjson.GetBytes(body, replyPath)
	if reply.Type != gjson.String || reply.Str == "" {
		c.observer.ObserveUpstream(ProviderGenerative, OutcomeEmptyReply)
		c.logger.Warn("generative provider returned no reply", zap.Int("status", statusCode))
		return "", ErrEmptyReply
	}
	c.observer.ObserveUpstream(ProviderGenerative, OutcomeSuccess)
	return reply.Str, nil
}
