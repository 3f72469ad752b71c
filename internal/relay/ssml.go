package relay

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	speakOpen  = "<speak>"
	speakClose = "</speak>"
)

// ErrMalformedBody reports a speech request that looked like JSON but did not parse.
var ErrMalformedBody = errors.New("relay: malformed request body")

// NormalizeSSML turns a speech request body into the SSML document sent to the provider.
// JSON bodies contribute input.ssml, or input.text wrapped in <speak>; raw bodies are wrapped
// unless they already start with <speak>. An empty result means there is nothing to speak.
func NormalizeSSML(body []byte, contentType string) (string, error) {
	trimmed := strings.TrimSpace(string(body))
	if isJSONContentType(contentType) || strings.HasPrefix(trimmed, "{") {
		if trimmed == "" {
			return "", nil
		}
		if !gjson.Valid(trimmed) {
			return "", ErrMalformedBody
		}
		return ssmlFromJSON(trimmed), nil
	}

	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, speakOpen) {
		return trimmed, nil
	}
	return speakOpen + trimmed + speakClose, nil
}

func ssmlFromJSON(document string) string {
	input := gjson.Get(document, "input")
	if !input.IsObject() {
		return ""
	}
	if ssml := input.Get("ssml"); ssml.Type == gjson.String && ssml.Str != "" {
		return ssml.Str
	}
	if text := input.Get("text"); text.Type == gjson.String && text.Str != "" {
		return speakOpen + text.Str + speakClose
	}
	return ""
}

func isJSONContentType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if index := strings.Index(mediaType, ";"); index >= 0 {
		mediaType = strings.TrimSpace(mediaType[:index])
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
