package bowl

import (
	"math"
	"time"
)

const (
	minStepRadians   = 0.03
	maxStepRadians   = 0.8
	stepsBeforeDrone = 8
	circlingTimeout  = 500 * time.Millisecond
)

// Point is a pointer sample relative to the page, timestamped in milliseconds.
type Point struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	TM int64   `json:"t_ms"`
}

// GestureSummary reports what a pointer trace did to the drone.
type GestureSummary struct {
	Circling     bool   `json:"circling"`
	StartedAtMS  *int64 `json:"started_at_ms,omitempty"`
	StoppedAtMS  *int64 `json:"stopped_at_ms,omitempty"`
	CountedSteps int    `json:"counted_steps"`
}

// Detector recognises circular stirring around the bowl. A step counts when the pointer's
// angle around the centre moves by more than 0.03 and less than 0.8 radians; the drone starts
// after more than eight counted steps and stops 500ms after the pointer goes still.
type Detector struct {
	center       Point
	radius       float64
	hasAngle     bool
	lastAngle    float64
	lastMoveMS   int64
	count        int
	circling     bool
	countedSteps int
}

// NewDetector returns a detector for a bowl at center. A positive radius treats samples outside
// it as the pointer leaving the bowl.
func NewDetector(center Point, radius float64) *Detector {
	return &Detector{center: center, radius: radius}
}

// Observe feeds one pointer sample and returns any start or stop it caused.
func (d *Detector) Observe(point Point) (started, stopped bool, stoppedAtMS int64) {
	if d.circling && point.TM-d.lastMoveMS >= circlingTimeout.Milliseconds() {
		stoppedAtMS = d.lastMoveMS + circlingTimeout.Milliseconds()
		d.stop()
		stopped = true
	}

	dx, dy := point.X-d.center.X, point.Y-d.center.Y
	if d.radius > 0 && math.Hypot(dx, dy) > d.radius {
		if d.circling {
			stoppedAtMS = point.TM
			stopped = true
		}
		d.Leave()
		return started, stopped, stoppedAtMS
	}

	angle := math.Atan2(dy, dx)
	if d.hasAngle {
		delta := math.Abs(angle - d.lastAngle)
		if delta > minStepRadians && delta < maxStepRadians {
			d.count++
			d.countedSteps++
			if d.count > stepsBeforeDrone && !d.circling {
				d.circling = true
				started = true
			}
		}
	}
	d.hasAngle = true
	d.lastAngle = angle
	d.lastMoveMS = point.TM
	return started, stopped, stoppedAtMS
}

// Leave resets the detector as when the pointer exits the bowl.
func (d *Detector) Leave() {
	d.hasAngle = false
	d.stop()
}

// Circling reports whether the drone is playing.
func (d *Detector) Circling() bool {
	return d.circling
}

func (d *Detector) stop() {
	d.circling = false
	d.count = 0
}

// Analyze replays a pointer trace through a fresh detector.
func Analyze(center Point, radius float64, points []Point) GestureSummary {
	detector := NewDetector(center, radius)
	var summary GestureSummary
	for _, point := range points {
		started, stopped, stoppedAt := detector.Observe(point)
		if stopped {
			at := stoppedAt
			summary.StoppedAtMS = &at
		}
		if started {
			at := point.TM
			summary.StartedAtMS = &at
		}
	}
	summary.Circling = detector.Circling()
	summary.CountedSteps = detector.countedSteps
	return summary
}
