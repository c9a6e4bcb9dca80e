package types

// AudioSegment is one synthesized dialogue line ready for mixing.
type AudioSegment struct {
	CharacterID string
	Text        string
	AudioPath   string
	StartTime   float64
	Duration    float64
}

// VideoSegment is a character image shown during [StartTime, EndTime).
type VideoSegment struct {
	CharacterID string
	ImagePath   string
	Position    Position
	StartTime   float64
	EndTime     float64
}

// CompositionEvent is published when a composition reaches a terminal state.
type CompositionEvent struct {
	ID           string            `json:"id"`
	Status       CompositionStatus `json:"status"`
	Progress     int               `json:"progress"`
	OutputURL    string            `json:"output_url,omitempty"`
	SubtitlesURL string            `json:"subtitles_url,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// CompositionRequest is the intake message for starting a composition.
type CompositionRequest struct {
	TemplateID       string           `json:"template_id"`
	Plot             string           `json:"plot"`
	Title            string           `json:"title,omitempty"`
	SubtitlePosition SubtitlePosition `json:"subtitle_position,omitempty"`
}
