package bowl

import "math"

type rampKind int

const (
	rampSet rampKind = iota
	rampLinear
	rampExponential
)

// automationEvent mirrors an audio-parameter automation step ending at time at.
type automationEvent struct {
	kind  rampKind
	at    float64
	value float64
}

// envelope evaluates a piecewise ramp schedule; the last value holds after the final event.
type envelope []automationEvent

func (e envelope) valueAt(t float64) float64 {
	if len(e) == 0 {
		return 0
	}
	previous := e[0]
	if t <= previous.at {
		return previous.value
	}
	for _, event := range e[1:] {
		if t >= event.at {
			previous = event
			continue
		}
		span := event.at - previous.at
		if span <= 0 {
			return event.value
		}
		progress := (t - previous.at) / span
		switch event.kind {
		case rampLinear:
			return previous.value + (event.value-previous.value)*progress
		case rampExponential:
			if previous.value <= 0 || event.value <= 0 {
				return previous.value
			}
			return previous.value * math.Pow(event.value/previous.value, progress)
		default:
			return previous.value
		}
	}
	return previous.value
}
