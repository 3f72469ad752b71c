package bowl

import "math"

const (
	DefaultSampleRate = 22050

	tapFundamentalHz = 220.0
	tapDurationSec   = 10.0
	tapMasterPeak    = 0.6

	droneFundamentalHz = 174.0
	droneLFOHz         = 0.3
	droneLFODepthHz    = 3.0
	droneCutoffHz      = 600.0
	droneFilterQ       = 0.5
	droneMasterLevel   = 0.35
	droneFadeInSec     = 1.5
	droneFadeOutSec    = 2.0

	silenceFloor = 0.001
)

type harmonic struct {
	ratio float64
	gain  float64
	cents float64
}

var tapHarmonics = []harmonic{
	{ratio: 1, gain: 0.4, cents: 0},
	{ratio: 1.02, gain: 0.3, cents: 2},
	{ratio: 2, gain: 0.25, cents: 0},
	{ratio: 2.98, gain: 0.15, cents: -3},
	{ratio: 3.02, gain: 0.12, cents: 3},
	{ratio: 4, gain: 0.08, cents: 0},
	{ratio: 5.5, gain: 0.05, cents: 5},
}

type partial struct {
	ratio      float64
	gain       float64
	modulation bool
}

var droneParts = []partial{
	{ratio: 1, gain: 0.35, modulation: true},
	{ratio: 1.005, gain: 0.3, modulation: true},
	{ratio: 2, gain: 0.15},
	{ratio: 3, gain: 0.08},
}

func detune(frequency, cents float64) float64 {
	return frequency * math.Pow(2, cents/1200)
}

// harmonicEnvelope attacks in 20ms, settles to 70% by 100ms, and fades out sooner for higher
// harmonics.
func harmonicEnvelope(h harmonic) envelope {
	return envelope{
		{kind: rampSet, at: 0, value: 0},
		{kind: rampLinear, at: 0.02, value: h.gain},
		{kind: rampExponential, at: 0.1, value: h.gain * 0.7},
		{kind: rampExponential, at: 8 - h.ratio*0.8, value: silenceFloor},
	}
}

var tapMasterEnvelope = envelope{
	{kind: rampSet, at: 0, value: 0},
	{kind: rampLinear, at: 0.01, value: tapMasterPeak},
	{kind: rampExponential, at: tapDurationSec, value: silenceFloor},
}

// TapTone renders the ten-second struck-bowl tone.
func TapTone(sampleRate int) []float64 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	total := int(tapDurationSec * float64(sampleRate))
	samples := make([]float64, total)
	envelopes := make([]envelope, len(tapHarmonics))
	frequencies := make([]float64, len(tapHarmonics))
	for index, h := range tapHarmonics {
		envelopes[index] = harmonicEnvelope(h)
		frequencies[index] = detune(tapFundamentalHz*h.ratio, h.cents)
	}

	for n := range samples {
		t := float64(n) / float64(sampleRate)
		var mixed float64
		for index := range tapHarmonics {
			mixed += envelopes[index].valueAt(t) * math.Sin(2*math.Pi*frequencies[index]*t)
		}
		samples[n] = mixed * tapMasterEnvelope.valueAt(t)
	}
	return samples
}

// DroneTone renders the sustained circling drone for the given length, fading in over 1.5s and
// out over the final 2s.
func DroneTone(sampleRate int, seconds float64) []float64 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if seconds <= 0 {
		return nil
	}
	total := int(seconds * float64(sampleRate))
	samples := make([]float64, total)
	phases := make([]float64, len(droneParts))
	filter := newLowPass(droneCutoffHz, droneFilterQ, float64(sampleRate))

	fadeOutStart := math.Max(seconds-droneFadeOutSec, 0)
	master := envelope{
		{kind: rampSet, at: 0, value: 0},
		{kind: rampLinear, at: math.Min(droneFadeInSec, fadeOutStart), value: droneMasterLevel},
		{kind: rampLinear, at: fadeOutStart, value: droneMasterLevel},
		{kind: rampLinear, at: seconds, value: 0},
	}
	if fadeOutStart == 0 {
		master = envelope{
			{kind: rampSet, at: 0, value: droneMasterLevel},
			{kind: rampLinear, at: seconds, value: 0},
		}
	}

	step := 1 / float64(sampleRate)
	for n := range samples {
		t := float64(n) * step
		lfo := droneLFODepthHz * math.Sin(2*math.Pi*droneLFOHz*t)
		var mixed float64
		for index, part := range droneParts {
			frequency := droneFundamentalHz * part.ratio
			if part.modulation {
				frequency += lfo
			}
			phases[index] += 2 * math.Pi * frequency * step
			if phases[index] > 2*math.Pi {
				phases[index] -= 2 * math.Pi
			}
			mixed += part.gain * math.Sin(phases[index])
		}
		samples[n] = filter.process(mixed) * master.valueAt(t)
	}
	return samples
}

// biquad is a direct-form-I second-order filter.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// newLowPass designs a resonant low-pass section with the audio-EQ-cookbook formulas.
func newLowPass(cutoff, q, sampleRate float64) *biquad {
	omega := 2 * math.Pi * cutoff / sampleRate
	alpha := math.Sin(omega) / (2 * q)
	cosine := math.Cos(omega)
	a0 := 1 + alpha
	return &biquad{
		b0: (1 - cosine) / 2 / a0,
		b1: (1 - cosine) / a0,
		b2: (1 - cosine) / 2 / a0,
		a1: -2 * cosine / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}
