package domain

import (
	"strings"
	"time"
)

// Color is the highlight color index stored by newer Kobo firmware.
type Color int

// Known highlight colors.
const (
	ColorYellow Color = iota
	ColorPink
	ColorBlue
	ColorGreen
)

// Known reports whether c is one of the four device colors.
func (c Color) Known() bool {
	return c >= ColorYellow && c <= ColorGreen
}

// Marker returns the emoji marker rendered in front of a highlight.
// Unknown colors have no marker.
func (c Color) Marker() string {
	switch c {
	case ColorYellow:
		return "🟡"
	case ColorPink:
		return "🔴"
	case ColorBlue:
		return "🔵"
	case ColorGreen:
		return "🟢"
	default:
		return ""
	}
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case ColorYellow:
		return "yellow"
	case ColorPink:
		return "pink"
	case ColorBlue:
		return "blue"
	case ColorGreen:
		return "green"
	default:
		return "unknown"
	}
}

// Annotation is a highlight, optionally carrying a reader comment.
type Annotation struct {
	CreatedAt time.Time `json:"created_at"`
	Color     *Color    `json:"color,omitempty"`
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	// VolumeID is the sub-document (content file) the highlight lives in.
	VolumeID string  `json:"volume_id"`
	Text     string  `json:"text"`
	Comment  string  `json:"comment,omitempty"`
	Type     string  `json:"type,omitempty"`
	Progress float64 `json:"progress"`
	Hidden   bool    `json:"hidden,omitempty"`
}

// IsNote reports whether the reader attached a comment.
func (a *Annotation) IsNote() bool {
	return strings.TrimSpace(a.Comment) != ""
}

// Marker returns the color marker, empty when the color is absent or unknown.
func (a *Annotation) Marker() string {
	if a.Color == nil {
		return ""
	}
	return a.Color.Marker()
}
