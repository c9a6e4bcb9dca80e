// Package video drives ffmpeg to overlay characters, mix dialogue audio,
// burn in captions and produce the delivery encode.
package video

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"skitbot/common"
	"skitbot/config"
	"skitbot/subtitles"
	"skitbot/types"

	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Quality selects the compression level of the final encode.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// CRF maps q to an x264 constant rate factor. Unknown tiers use medium.
func (q Quality) CRF() int {
	switch q {
	case QualityHigh:
		return config.CRFHigh
	case QualityLow:
		return config.CRFLow
	default:
		return config.CRFMedium
	}
}

// Runner executes ffmpeg with the given arguments.
type Runner func(ctx context.Context, args []string) error

// ExecRunner runs the ffmpeg binary at path, attaching the tail of stderr to failures.
func ExecRunner(path string) Runner {
	if path == "" {
		path = "ffmpeg"
	}
	return func(ctx context.Context, args []string) error {
		cmd := exec.CommandContext(ctx, path, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%w: %s", err, tail(stderr.String(), 600))
		}
		return nil
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Config configures a Compositor.
type Config struct {
	FFmpegPath    string
	BaseImageSize int
	ProbeTimeout  time.Duration
}

// Compositor wraps the media engine. Every operation writes its result into
// the caller-supplied work directory and leaves cleanup to the caller.
type Compositor struct {
	prober        Prober
	run           Runner
	baseImageSize int
}

// NewCompositor creates a Compositor backed by the ffmpeg and ffprobe binaries.
func NewCompositor(cfg Config) *Compositor {
	return NewCompositorWith(FFProbe{Timeout: cfg.ProbeTimeout}, ExecRunner(cfg.FFmpegPath), cfg.BaseImageSize)
}

// NewCompositorWith injects the prober and runner, mainly for tests.
func NewCompositorWith(prober Prober, run Runner, baseImageSize int) *Compositor {
	if baseImageSize <= 0 {
		baseImageSize = config.BaseImageSize
	}
	return &Compositor{prober: prober, run: run, baseImageSize: baseImageSize}
}

// Probe exposes the underlying prober.
func (c *Compositor) Probe(ctx context.Context, ref string) (*Metadata, error) {
	meta, err := c.prober.Probe(ctx, ref)
	if err != nil {
		return nil, common.NewProviderError("ffprobe", "probe", err)
	}
	return meta, nil
}

// ApplyOverlays shows each segment's image during its window on top of the
// base video. Overlays are chained in segment order. With no segments the
// input path is returned unchanged.
func (c *Compositor) ApplyOverlays(ctx context.Context, workDir, videoPath string, segments []types.VideoSegment) (string, error) {
	if len(segments) == 0 {
		return videoPath, nil
	}

	meta, err := c.Probe(ctx, videoPath)
	if err != nil {
		return "", err
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return "", common.NewProviderError("ffmpeg", "overlay", fmt.Errorf("video %s has no dimensions", videoPath))
	}

	sizes := map[string][2]int{}
	base := ffmpeg.Input(videoPath)
	stream := base.Video()
	for _, seg := range segments {
		edge, ok := sizes[seg.ImagePath]
		if !ok {
			edge = c.imageSize(ctx, seg.ImagePath)
			sizes[seg.ImagePath] = edge
		}
		w := ScaledSize(seg.Position.Scale, edge[0])
		h := ScaledSize(seg.Position.Scale, edge[1])
		x, y := OverlayOffset(seg.Position, meta.Width, meta.Height, w, h)

		img := ffmpeg.Input(seg.ImagePath).Filter("scale", ffmpeg.Args{strconv.Itoa(w), strconv.Itoa(h)})
		stream = stream.Overlay(img, "", ffmpeg.KwArgs{
			"x":      strconv.Itoa(x),
			"y":      strconv.Itoa(y),
			"enable": fmt.Sprintf("between(t,%.3f,%.3f)", seg.StartTime, seg.EndTime),
		})
	}

	streams := []*ffmpeg.Stream{stream}
	kwargs := ffmpeg.KwArgs{"c:v": config.VideoCodec, "preset": "veryfast", "pix_fmt": config.PixelFormat}
	if meta.HasAudio {
		streams = append(streams, base.Audio())
		kwargs["c:a"] = "copy"
	}

	out := outputPath(workDir, "overlay", "mp4")
	args := ffmpeg.Output(streams, out, kwargs).OverWriteOutput().GetArgs()
	log.Printf("[video] applying %d overlay(s) to %s", len(segments), filepath.Base(videoPath))
	if err := c.run(ctx, args); err != nil {
		return "", common.NewProviderError("ffmpeg", "overlay", err)
	}
	return out, nil
}

// imageSize probes an overlay image, falling back to the configured square base size.
func (c *Compositor) imageSize(ctx context.Context, ref string) [2]int {
	meta, err := c.prober.Probe(ctx, ref)
	if err != nil || meta.Width <= 0 || meta.Height <= 0 {
		return [2]int{c.baseImageSize, c.baseImageSize}
	}
	return [2]int{meta.Width, meta.Height}
}

// MixAudio delays every segment to its start time and mixes them over the
// video. An existing source audio track is kept at reduced volume. The mix
// lasts as long as the longest input. With no segments the input path is
// returned unchanged.
func (c *Compositor) MixAudio(ctx context.Context, workDir, videoPath string, segments []types.AudioSegment) (string, error) {
	if len(segments) == 0 {
		return videoPath, nil
	}

	meta, err := c.Probe(ctx, videoPath)
	if err != nil {
		return "", err
	}

	base := ffmpeg.Input(videoPath)
	inputs := make([]*ffmpeg.Stream, 0, len(segments)+1)
	if meta.HasAudio {
		volume := strconv.FormatFloat(config.SourceAudioVolume, 'f', -1, 64)
		inputs = append(inputs, base.Audio().Filter("volume", ffmpeg.Args{volume}))
	}
	for _, seg := range segments {
		ms := DelayMillis(seg.StartTime)
		inputs = append(inputs, ffmpeg.Input(seg.AudioPath).Filter("adelay", ffmpeg.Args{fmt.Sprintf("%d|%d", ms, ms)}))
	}

	mixed := ffmpeg.Filter(inputs, "amix", ffmpeg.Args{}, ffmpeg.KwArgs{
		"inputs":   strconv.Itoa(len(inputs)),
		"duration": "longest",
	})

	out := outputPath(workDir, "mixed", "mp4")
	args := ffmpeg.Output([]*ffmpeg.Stream{base.Video(), mixed}, out, ffmpeg.KwArgs{
		"c:v": "copy",
		"c:a": config.AudioCodec,
		"b:a": config.AudioBitrate,
	}).OverWriteOutput().GetArgs()

	log.Printf("[video] mixing %d dialogue track(s), source audio kept: %t", len(segments), meta.HasAudio)
	if err := c.run(ctx, args); err != nil {
		return "", common.NewProviderError("ffmpeg", "audio mix", err)
	}
	return out, nil
}

// DelayMillis converts a start time to the millisecond delay used by adelay.
func DelayMillis(start float64) int64 {
	return int64(math.Round(math.Max(0, start) * 1000))
}

// BurnSubtitles renders the styled caption file into the video pixels.
func (c *Compositor) BurnSubtitles(ctx context.Context, workDir, videoPath, captionPath string, preset subtitles.Preset) (string, error) {
	log.Printf("[video] burning subtitles with preset %s", preset)

	meta, err := c.Probe(ctx, videoPath)
	if err != nil {
		return "", err
	}

	in := ffmpeg.Input(videoPath)
	streams := []*ffmpeg.Stream{in.Video().Filter("ass", ffmpeg.Args{filepath.ToSlash(captionPath)})}
	kwargs := ffmpeg.KwArgs{"c:v": config.VideoCodec, "preset": "veryfast", "pix_fmt": config.PixelFormat}
	if meta.HasAudio {
		streams = append(streams, in.Audio())
		kwargs["c:a"] = "copy"
	}

	out := outputPath(workDir, "subtitled", "mp4")
	args := ffmpeg.Output(streams, out, kwargs).OverWriteOutput().GetArgs()
	if err := c.run(ctx, args); err != nil {
		return "", common.NewProviderError("ffmpeg", "subtitle burn-in", err)
	}
	return out, nil
}

// Finalize re-encodes inputPath into outputPath for delivery.
func (c *Compositor) Finalize(ctx context.Context, inputPath, outputPath string, quality Quality) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	args := ffmpeg.Input(inputPath).Output(outputPath, ffmpeg.KwArgs{
		"c:v":      config.VideoCodec,
		"preset":   config.VideoPreset,
		"crf":      strconv.Itoa(quality.CRF()),
		"pix_fmt":  config.PixelFormat,
		"c:a":      config.AudioCodec,
		"b:a":      config.AudioBitrate,
		"movflags": "+faststart",
	}).OverWriteOutput().GetArgs()

	log.Printf("[video] finalizing %s (quality=%s, crf=%d)", filepath.Base(outputPath), quality, quality.CRF())
	if err := c.run(ctx, args); err != nil {
		return common.NewProviderError("ffmpeg", "finalize", err)
	}
	return nil
}

func outputPath(dir, prefix, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d_%s.%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8], ext))
}
