package types

import "time"

// Anchor selects which corner (or the center) of an overlay sits on its position.
type Anchor string

const (
	AnchorTopLeft     Anchor = "top-left"
	AnchorTopRight    Anchor = "top-right"
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorBottomRight Anchor = "bottom-right"
	AnchorCenter      Anchor = "center"
)

// Valid reports whether a is one of the known anchors.
func (a Anchor) Valid() bool {
	switch a {
	case AnchorTopLeft, AnchorTopRight, AnchorBottomLeft, AnchorBottomRight, AnchorCenter:
		return true
	}
	return false
}

// Position places a character overlay. X and Y are percentages of the video size.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Scale  float64 `json:"scale"`
	Anchor Anchor  `json:"anchor"`
}

// DefaultPosition is used for characters without an explicit placement.
var DefaultPosition = Position{X: 5, Y: 95, Scale: 0.25, Anchor: AnchorBottomLeft}

// IsZero reports whether p was never set.
func (p Position) IsZero() bool {
	return p == Position{}
}

// Character is a voiced persona that can appear in a template.
type Character struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	DisplayName string    `json:"display_name"`
	VoiceID     string    `json:"voice_id"`
	ImageURL    string    `json:"image_url"`
	Position    Position  `json:"position" gorm:"embedded;embeddedPrefix:position_"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Placement returns the character's position, or DefaultPosition when unset.
func (c Character) Placement() Position {
	if c.Position.IsZero() {
		return DefaultPosition
	}
	return c.Position
}

// Dimensions is a pixel size.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Template is a background video and the cast allowed to appear on it.
type Template struct {
	ID          string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string      `json:"name" gorm:"not null"`
	Description string      `json:"description,omitempty"`
	VideoURL    string      `json:"video_url"`
	Duration    float64     `json:"duration"`
	Dimensions  Dimensions  `json:"dimensions" gorm:"embedded;embeddedPrefix:dimensions_"`
	FrameRate   float64     `json:"frame_rate"`
	Characters  []Character `json:"characters" gorm:"many2many:template_characters;"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
