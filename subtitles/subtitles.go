// Package subtitles renders timed dialogue as caption tracks.
package subtitles

import (
	"fmt"
	"math"
	"strings"

	"skitbot/types"
)

// Cue is a single caption shown during [Start, End].
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Preset is the burn-in style for one subtitle position.
type Preset struct {
	Position  types.SubtitlePosition
	Alignment int
	MarginV   int
}

// String is the form logged when a preset is applied.
func (p Preset) String() string {
	return fmt.Sprintf("position=%s alignment=%d margin_v=%d", p.Position, p.Alignment, p.MarginV)
}

// Alignment values use the numpad layout of the ASS format.
var presets = map[types.SubtitlePosition]Preset{
	types.SubtitleTop:    {Position: types.SubtitleTop, Alignment: 8, MarginV: 60},
	types.SubtitleCenter: {Position: types.SubtitleCenter, Alignment: 5, MarginV: 0},
	types.SubtitleBottom: {Position: types.SubtitleBottom, Alignment: 2, MarginV: 60},
}

// PresetFor returns the style preset for pos. Unknown positions use bottom.
func PresetFor(pos types.SubtitlePosition) Preset {
	return presets[pos.OrDefault()]
}

// Cues converts dialogue lines into zero-indexed cues. Overlapping windows are kept as-is.
func Cues(lines []types.DialogueLine) []Cue {
	cues := make([]Cue, 0, len(lines))
	for i, l := range lines {
		cues = append(cues, Cue{
			Index: i,
			Start: l.StartTime,
			End:   l.StartTime + l.Duration,
			Text:  l.Text,
		})
	}
	return cues
}

// SRT renders cues as SubRip text. An empty slice renders an empty track.
func SRT(cues []Cue) string {
	var b strings.Builder
	for i, c := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n", c.Index)
		fmt.Fprintf(&b, "%s --> %s\n", formatSRTTimestamp(c.Start), formatSRTTimestamp(c.End))
		fmt.Fprintf(&b, "%s\n", c.Text)
	}
	return b.String()
}

// ASSOptions controls the styled track used for burn-in.
type ASSOptions struct {
	Width    int
	Height   int
	FontName string
	FontSize int
}

func (o ASSOptions) withDefaults() ASSOptions {
	if o.Width <= 0 {
		o.Width = 1920
	}
	if o.Height <= 0 {
		o.Height = 1080
	}
	if o.FontName == "" {
		o.FontName = "Arial"
	}
	if o.FontSize <= 0 {
		// scale with the frame so portrait and landscape read the same
		o.FontSize = int(math.Round(float64(min(o.Width, o.Height)) / 22.5))
	}
	return o
}

// ASS renders cues as an Advanced SubStation Alpha script styled with preset.
func ASS(cues []Cue, preset Preset, opts ASSOptions) string {
	opts = opts.withDefaults()

	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("Title: Skitbot Captions\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", opts.Width)
	fmt.Fprintf(&b, "PlayResY: %d\n", opts.Height)
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("\n")
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,3,1,%d,40,40,%d,1\n",
		opts.FontName, opts.FontSize, preset.Alignment, preset.MarginV)
	b.WriteString("\n")
	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTimestamp(c.Start),
			formatASSTimestamp(c.End),
			escapeASSText(c.Text))
	}
	return b.String()
}

// formatSRTTimestamp converts seconds to hh:mm:ss,mmm
func formatSRTTimestamp(seconds float64) string {
	ms := int64(math.Round(math.Max(0, seconds) * 1000))
	hours := ms / 3_600_000
	minutes := (ms % 3_600_000) / 60_000
	secs := (ms % 60_000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// formatASSTimestamp converts seconds to h:mm:ss.cc
func formatASSTimestamp(seconds float64) string {
	cs := int64(math.Round(math.Max(0, seconds) * 100))
	hours := cs / 360_000
	minutes := (cs % 360_000) / 6000
	secs := (cs % 6000) / 100
	centis := cs % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

func escapeASSText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\\N")
	s = strings.ReplaceAll(s, "{", "(")
	return strings.ReplaceAll(s, "}", ")")
}
