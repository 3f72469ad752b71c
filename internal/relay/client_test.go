package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	Query string
	Body  map[string]any
}

type fakeProvider struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	decoded := map[string]any{}
	_ = json.Unmarshal(raw, &decoded)
	p.mu.Lock()
	p.requests = append(p.requests, recordedRequest{Query: r.URL.RawQuery, Body: decoded})
	p.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(p.status)
	_, _ = w.Write([]byte(p.body))
}

func (p *fakeProvider) lastRequest(t *testing.T) recordedRequest {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		t.Fatalf("expected provider to receive a request")
	}
	return p.requests[len(p.requests)-1]
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *countingObserver) ObserveUpstream(provider, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, provider+":"+outcome)
}

func testRelayConfig(endpoint string) Config {
	return Config{
		TTSAPIKey:      "tts-key",
		GeminiAPIKey:   "gemini-key",
		TTSEndpoint:    endpoint,
		GeminiEndpoint: endpoint,
		VoiceName:      "en-US-Neural2-F",
		VoiceLanguage:  "en-US",
		AudioEncoding:  "LINEAR16",
		SpeakingRate:   0.75,
	}
}

func TestSpeechClientSendsVoiceConfiguration(t *testing.T) {
	provider := &fakeProvider{status: http.StatusOK, body: `{"audioContent":"UklGRg=="}`}
	server := httptest.NewServer(provider)
	defer server.Close()

	observer := &countingObserver{}
	client := NewSpeechClient(SpeechClientConfig{Relay: testRelayConfig(server.URL), Observer: observer})

	speech, err := client.Synthesize(context.Background(), "<speak>hello</speak>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if speech.AudioContent != "UklGRg==" {
		t.Fatalf("unexpected audio content %q", speech.AudioContent)
	}

	request := provider.lastRequest(t)
	if request.Query != "key=tts-key" {
		t.Fatalf("expected api key in query, got %q", request.Query)
	}
	input := request.Body["input"].(map[string]any)
	if input["ssml"] != "<speak>hello</speak>" {
		t.Fatalf("unexpected ssml %#v", input)
	}
	voice := request.Body["voice"].(map[string]any)
	if voice["name"] != "en-US-Neural2-F" || voice["languageCode"] != "en-US" {
		t.Fatalf("unexpected voice %#v", voice)
	}
	audio := request.Body["audioConfig"].(map[string]any)
	if audio["audioEncoding"] != "LINEAR16" || audio["speakingRate"] != 0.75 {
		t.Fatalf("unexpected audio config %#v", audio)
	}
	if len(observer.outcomes) != 1 || observer.outcomes[0] != "speech:success" {
		t.Fatalf("unexpected outcomes %v", observer.outcomes)
	}
}

func TestSpeechClientSurfacesProviderErrors(t *testing.T) {
	provider := &fakeProvider{status: http.StatusForbidden, body: `{"error":{"code":403,"message":"API key not valid"}}`}
	server := httptest.NewServer(provider)
	defer server.Close()

	client := NewSpeechClient(SpeechClientConfig{Relay: testRelayConfig(server.URL)})
	_, err := client.Synthesize(context.Background(), "<speak>hello</speak>")

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if upstreamErr.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected status %d", upstreamErr.StatusCode)
	}
	if !strings.Contains(string(upstreamErr.Body), "API key not valid") {
		t.Fatalf("expected provider body to be carried, got %s", upstreamErr.Body)
	}
}

func TestSpeechClientRejectsNonJSONResponses(t *testing.T) {
	provider := &fakeProvider{status: http.StatusBadGateway, body: `<html>bad gateway</html>`}
	server := httptest.NewServer(provider)
	defer server.Close()

	client := NewSpeechClient(SpeechClientConfig{Relay: testRelayConfig(server.URL)})
	_, err := client.Synthesize(context.Background(), "<speak>hello</speak>")
	var upstreamErr *UpstreamError
	if err == nil || errors.As(err, &upstreamErr) {
		t.Fatalf("expected a plain failure, got %v", err)
	}
}

func TestGenerativeClientExtractsFirstCandidate(t *testing.T) {
	provider := &fakeProvider{
		status: http.StatusOK,
		body:   `{"candidates":[{"content":{"parts":[{"text":"you are not alone and a slow breath can help as they win or learn"}]}}]}`,
	}
	server := httptest.NewServer(provider)
	defer server.Close()

	client := NewGenerativeClient(GenerativeClientConfig{Relay: testRelayConfig(server.URL)})
	reply, err := client.Reply(context.Background(), "I feel anxious")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "you are not alone and a slow breath can help as they win or learn" {
		t.Fatalf("unexpected reply %q", reply)
	}

	request := provider.lastRequest(t)
	if request.Query != "key=gemini-key" {
		t.Fatalf("expected api key in query, got %q", request.Query)
	}
	contents := request.Body["contents"].([]any)
	first := contents[0].(map[string]any)
	if first["role"] != "user" {
		t.Fatalf("unexpected role %#v", first["role"])
	}
	prompt := first["parts"].([]any)[0].(map[string]any)["text"].(string)
	if !strings.HasPrefix(prompt, "You are a calm empathetic mental health companion") {
		t.Fatalf("unexpected prompt prefix %q", prompt)
	}
	if !strings.HasSuffix(prompt, "User message\n\"I feel anxious\"") {
		t.Fatalf("expected user message quoted at the end, got %q", prompt)
	}
}

func TestGenerativeClientEmptyReplies(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "no-candidates", status: http.StatusOK, body: `{"candidates":[]}`},
		{name: "blank-text", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`},
		{name: "provider-error-body", status: http.StatusTooManyRequests, body: `{"error":{"code":429}}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			provider := &fakeProvider{status: testCase.status, body: testCase.body}
			server := httptest.NewServer(provider)
			defer server.Close()

			client := NewGenerativeClient(GenerativeClientConfig{Relay: testRelayConfig(server.URL)})
			if _, err := client.Reply(context.Background(), "hello"); !errors.Is(err, ErrEmptyReply) {
				t.Fatalf("expected empty reply error, got %v", err)
			}
		})
	}
}

func TestGenerativeClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(&fakeProvider{status: http.StatusOK, body: `{}`})
	endpoint := server.URL
	server.Close()

	client := NewGenerativeClient(GenerativeClientConfig{Relay: testRelayConfig(endpoint)})
	_, err := client.Reply(context.Background(), "hello")
	if err == nil || errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}
