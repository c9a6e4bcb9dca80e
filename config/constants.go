package config

import "time"

// Encoding Constants
const (
	// VideoCodec is the delivery video codec
	VideoCodec = "libx264"

	// AudioCodec is the delivery audio codec
	AudioCodec = "aac"

	// AudioBitrate is the delivery audio bitrate
	AudioBitrate = "192k"

	// VideoPreset is the x264 speed/size trade-off used for the final encode
	VideoPreset = "medium"

	// PixelFormat keeps the output playable in browsers and phones
	PixelFormat = "yuv420p"

	// SourceAudioVolume is the level of the template's own audio under the dialogue
	SourceAudioVolume = 0.3
)

// CRF values per quality tier (lower is better quality)
const (
	CRFHigh   = 18
	CRFMedium = 23
	CRFLow    = 28
)

// Overlay Constants
const (
	// BaseImageSize is the assumed edge length of a character image when it cannot be probed
	BaseImageSize = 400
)

// Pipeline progress checkpoints (percent)
const (
	ProgressScriptStarted   = 5
	ProgressScriptDone      = 15
	ProgressAudioDone       = 60
	ProgressOverlaysDone    = 70
	ProgressAudioMixed      = 78
	ProgressSubtitlesDone   = 88
	ProgressUploading       = 92
	ProgressCompleted       = 100
	ProgressRegenerateStart = 60
)

// Storage folders
const (
	FolderTemplates    = "templates"
	FolderCharacters   = "characters"
	FolderCompositions = "compositions"
	FolderAudio        = "audio"
	FolderSubtitles    = "subtitles"
)

// Script Constants
const (
	// MinScriptLines and MaxScriptLines bound the requested dialogue length
	MinScriptLines = 6
	MaxScriptLines = 10

	// MaxWordsPerLine keeps each spoken line short
	MaxWordsPerLine = 15

	// MaxLineDelay caps the authored pause before a line (seconds)
	MaxLineDelay = 3.0

	// MaxTitleWords limits generated titles
	MaxTitleWords = 10

	// FallbackTitle is used when title generation fails
	FallbackTitle = "Untitled Video"

	// DefaultTargetDuration is used when a template has no duration (seconds)
	DefaultTargetDuration = 60.0
)

// Housekeeping Constants
const (
	// DefaultListLimit and MaxListLimit bound composition listings
	DefaultListLimit = 50
	MaxListLimit     = 200

	// ShutdownTimeout bounds graceful shutdown of the HTTP server and pipelines
	ShutdownTimeout = 30 * time.Second
)
