package video

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Metadata is what the pipeline needs to know about a media reference.
type Metadata struct {
	Duration   float64
	Width      int
	Height     int
	FrameRate  float64
	VideoCodec string
	AudioCodec string
	Bitrate    int64
	HasAudio   bool
}

// DefaultProbeTimeout bounds a single ffprobe call.
const DefaultProbeTimeout = 30 * time.Second

// Prober inspects local or remote media.
type Prober interface {
	Probe(ctx context.Context, ref string) (*Metadata, error)
}

// FFProbe runs ffprobe through ffmpeg-go.
type FFProbe struct {
	Timeout time.Duration
}

type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

// Probe returns duration, dimensions, frame rate, codecs and bitrate of ref.
func (p FFProbe) Probe(ctx context.Context, ref string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	raw, err := ffmpeg.ProbeWithTimeout(ref, timeout, ffmpeg.KwArgs{})
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", ref, err)
	}
	return parseProbe(raw)
}

func parseProbe(raw string) (*Metadata, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	meta := &Metadata{}
	meta.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	meta.Bitrate, _ = strconv.ParseInt(out.Format.BitRate, 10, 64)

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if meta.VideoCodec != "" {
				continue
			}
			meta.VideoCodec = s.CodecName
			meta.Width = s.Width
			meta.Height = s.Height
			meta.FrameRate = parseFrameRate(s.RFrameRate)
			if meta.Duration == 0 {
				meta.Duration, _ = strconv.ParseFloat(s.Duration, 64)
			}
		case "audio":
			if meta.HasAudio {
				continue
			}
			meta.HasAudio = true
			meta.AudioCodec = s.CodecName
			if meta.Duration == 0 {
				meta.Duration, _ = strconv.ParseFloat(s.Duration, 64)
			}
		}
	}
	return meta, nil
}

// parseFrameRate converts "30000/1001" style rates.
func parseFrameRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// ProbeDuration returns only the duration of ref.
func (p FFProbe) ProbeDuration(ctx context.Context, ref string) (float64, error) {
	meta, err := p.Probe(ctx, ref)
	if err != nil {
		return 0, err
	}
	if meta.Duration <= 0 {
		return 0, fmt.Errorf("ffprobe %s: no duration reported", ref)
	}
	return meta.Duration, nil
}
