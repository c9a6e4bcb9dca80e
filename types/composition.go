package types

import "time"

// CompositionStatus is the pipeline stage a composition is currently in.
type CompositionStatus string

const (
	StatusPending          CompositionStatus = "pending"
	StatusGeneratingScript CompositionStatus = "generating_script"
	StatusGeneratingAudio  CompositionStatus = "generating_audio"
	StatusCompositing      CompositionStatus = "compositing"
	StatusAddingSubtitles  CompositionStatus = "adding_subtitles"
	StatusUploading        CompositionStatus = "uploading"
	StatusCompleted        CompositionStatus = "completed"
	StatusFailed           CompositionStatus = "failed"
)

// Terminal reports whether no further pipeline transitions happen from s.
func (s CompositionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SubtitlePosition is the vertical anchor of burned-in captions.
type SubtitlePosition string

const (
	SubtitleTop    SubtitlePosition = "top"
	SubtitleCenter SubtitlePosition = "center"
	SubtitleBottom SubtitlePosition = "bottom"
)

// Valid reports whether p is one of the supported positions.
func (p SubtitlePosition) Valid() bool {
	switch p {
	case SubtitleTop, SubtitleCenter, SubtitleBottom:
		return true
	}
	return false
}

// OrDefault returns p, or bottom when p is empty or unknown.
func (p SubtitlePosition) OrDefault() SubtitlePosition {
	if p.Valid() {
		return p
	}
	return SubtitleBottom
}

// DialogueLine is one spoken line of a generated script.
// StartTime and Duration are seconds; Delay is the authored pause before the line.
type DialogueLine struct {
	CharacterID string  `json:"character_id"`
	Text        string  `json:"text"`
	StartTime   float64 `json:"start_time"`
	Duration    float64 `json:"duration"`
	Delay       float64 `json:"delay"`
	SpeechURL   string  `json:"speech_url,omitempty"`
}

// Composition is the job record driving one generation run.
type Composition struct {
	ID               string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TemplateID       string            `json:"template_id" gorm:"index;not null"`
	Title            string            `json:"title"`
	Plot             string            `json:"plot" gorm:"type:text"`
	SubtitlePosition SubtitlePosition  `json:"subtitle_position" gorm:"default:'bottom'"`
	GeneratedScript  []DialogueLine    `json:"generated_script" gorm:"serializer:json;type:jsonb"`
	Status           CompositionStatus `json:"status" gorm:"index;default:'pending'"`
	Progress         int               `json:"progress"`
	OutputURL        string            `json:"output_url,omitempty"`
	SubtitlesURL     string            `json:"subtitles_url,omitempty"`
	Error            string            `json:"error,omitempty" gorm:"type:text"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate the script freely.
func (c *Composition) Clone() *Composition {
	if c == nil {
		return nil
	}
	out := *c
	if c.GeneratedScript != nil {
		out.GeneratedScript = make([]DialogueLine, len(c.GeneratedScript))
		copy(out.GeneratedScript, c.GeneratedScript)
	}
	return &out
}

// CompositionUpdate is a partial-field merge applied by the record store.
// Nil fields are left untouched.
type CompositionUpdate struct {
	Title            *string
	SubtitlePosition *SubtitlePosition
	GeneratedScript  []DialogueLine
	Status           *CompositionStatus
	Progress         *int
	OutputURL        *string
	SubtitlesURL     *string
	Error            *string
}

// Apply merges u into c.
func (u CompositionUpdate) Apply(c *Composition) {
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.SubtitlePosition != nil {
		c.SubtitlePosition = *u.SubtitlePosition
	}
	if u.GeneratedScript != nil {
		c.GeneratedScript = make([]DialogueLine, len(u.GeneratedScript))
		copy(c.GeneratedScript, u.GeneratedScript)
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.Progress != nil {
		c.Progress = *u.Progress
	}
	if u.OutputURL != nil {
		c.OutputURL = *u.OutputURL
	}
	if u.SubtitlesURL != nil {
		c.SubtitlesURL = *u.SubtitlesURL
	}
	if u.Error != nil {
		c.Error = *u.Error
	}
}

// Columns returns the column/value map gorm needs for a partial update.
func (u CompositionUpdate) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.SubtitlePosition != nil {
		cols["subtitle_position"] = *u.SubtitlePosition
	}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.Progress != nil {
		cols["progress"] = *u.Progress
	}
	if u.OutputURL != nil {
		cols["output_url"] = *u.OutputURL
	}
	if u.SubtitlesURL != nil {
		cols["subtitles_url"] = *u.SubtitlesURL
	}
	if u.Error != nil {
		cols["error"] = *u.Error
	}
	return cols
}
