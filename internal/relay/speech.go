package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Speech is the synthesized audio returned by the provider, base64 encoded.
type Speech struct {
	AudioContent string `json:"audioContent"`
}

type speechRequest struct {
	Input       speechInput       `json:"input"`
	Voice       speechVoice       `json:"voice"`
	AudioConfig speechAudioConfig `json:"audioConfig"`
}

type speechInput struct {
	SSML string `json:"ssml"`
}

type speechVoice struct {
	Name         string `json:"name"`
	LanguageCode string `json:"languageCode"`
}

type speechAudioConfig struct {
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float64 `json:"speakingRate,omitempty"`
}

// SpeechClientConfig wires the speech client.
type SpeechClientConfig struct {
	Relay      Config
	HTTPClient *http.Client
	Observer   Observer
	Logger     *zap.Logger
}

// SpeechClient synthesizes SSML with the text-to-speech provider.
type SpeechClient struct {
	call     providerCall
	voice    speechVoice
	audio    speechAudioConfig
	observer Observer
	logger   *zap.Logger
}

// NewSpeechClient constructs a SpeechClient.
func NewSpeechClient(cfg SpeechClientConfig) *SpeechClient {
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
	return &SpeechClient{
		call: providerCall{
			httpClient: httpClient,
			endpoint:   cfg.Relay.TTSEndpoint,
			apiKey:     cfg.Relay.TTSAPIKey,
		},
		voice: speechVoice{
			Name:         cfg.Relay.VoiceName,
			LanguageCode: cfg.Relay.VoiceLanguage,
		},
		audio: speechAudioConfig{
			AudioEncoding: cfg.Relay.AudioEncoding,
			SpeakingRate:  cfg.Relay.SpeakingRate,
		},
		observer: observer,
		logger:   logger,
	}
}

// Synthesize forwards the SSML document. A non-2xx JSON response yields *UpstreamError.
func (c *SpeechClient) Synthesize(ctx context.Context, ssml string) (Speech, error) {
	c.logger.Debug("speech synthesis requested", zap.Int("ssml_length", len(ssml)))

	statusCode, body, err := c.call.post(ctx, speechRequest{
		Input:       speechInput{SSML: ssml},
		Voice:       c.voice,
		AudioConfig: c.audio,
	})
	if err != nil {
		c.observer.ObserveUpstream(ProviderSpeech, OutcomeFailure)
		return Speech{}, err
	}
	if !json.Valid(body) {
		c.observer.ObserveUpstream(ProviderSpeech, OutcomeFailure)
		return Speech{}, fmt.Errorf("relay: speech response with status %d is not JSON", statusCode)
	}
	if !successful(statusCode) {
		c.observer.ObserveUpstream(ProviderSpeech, OutcomeUpstreamError)
		return Speech{}, &UpstreamError{StatusCode: statusCode, Body: json.RawMessage(body)}
	}

	var speech Speech
	if err := json.Unmarshal(body, &speech); err != nil {
		c.observer.ObserveUpstream(ProviderSpeech, OutcomeFailure)
		return Speech{}, fmt.Errorf("relay: decode speech response: %w", err)
	}
	c.observer.ObserveUpstream(ProviderSpeech, OutcomeSuccess)
	return speech, nil
}
