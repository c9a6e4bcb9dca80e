// Package timing lays out dialogue lines on the video timeline.
package timing

import (
	"math"
	"strings"

	"skitbot/types"
)

const (
	// DefaultWordsPerSecond is the speaking rate used before real audio exists.
	DefaultWordsPerSecond = 2.5
	// DefaultPause is the gap inserted between estimated lines.
	DefaultPause = 0.5
	// MinLineDuration is the shortest estimated line.
	MinLineDuration = 1.5
)

// Estimator produces provisional timings from text length alone.
type Estimator struct {
	WordsPerSecond float64
	Pause          float64
}

// NewEstimator returns an Estimator, substituting defaults for non-positive values.
func NewEstimator(wordsPerSecond, pause float64) Estimator {
	if wordsPerSecond <= 0 {
		wordsPerSecond = DefaultWordsPerSecond
	}
	if pause < 0 {
		pause = DefaultPause
	}
	return Estimator{WordsPerSecond: wordsPerSecond, Pause: pause}
}

// EstimateDuration returns the expected spoken length of text in seconds.
func (e Estimator) EstimateDuration(text string) float64 {
	wps := e.WordsPerSecond
	if wps <= 0 {
		wps = DefaultWordsPerSecond
	}
	words := len(strings.Fields(text))
	return math.Max(MinLineDuration, float64(words)/wps)
}

// Estimate fills StartTime and Duration of every line using the word-rate estimate.
// Each line starts after the previous line plus its own delay; lines after the first
// are also separated by the fixed pause.
func (e Estimator) Estimate(lines []types.DialogueLine) {
	current := 0.0
	for i := range lines {
		if i > 0 {
			current += e.Pause
		}
		current += lines[i].Delay
		lines[i].StartTime = current
		lines[i].Duration = e.EstimateDuration(lines[i].Text)
		current += lines[i].Duration
	}
}

// Recompute walks the lines in order and sets each StartTime from the
// cumulative delays and durations before it. It must be re-run whenever a
// Duration or Delay changes. Running it twice yields identical results.
func Recompute(lines []types.DialogueLine) {
	current := 0.0
	for i := range lines {
		current += lines[i].Delay
		lines[i].StartTime = current
		current += lines[i].Duration
	}
}

// TotalDuration is the end of the last line, or 0 for an empty script.
func TotalDuration(lines []types.DialogueLine) float64 {
	end := 0.0
	for _, l := range lines {
		end = math.Max(end, l.StartTime+l.Duration)
	}
	return end
}

// ApplyDelays overwrites line delays by index. Entries past the end of lines are
// ignored, lines past the end of delays keep their delay. Negative values are
// clamped to zero.
func ApplyDelays(lines []types.DialogueLine, delays []float64) {
	for i, d := range delays {
		if i >= len(lines) {
			break
		}
		lines[i].Delay = math.Max(0, d)
	}
}
