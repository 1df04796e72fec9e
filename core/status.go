package core

import "strings"

// Status is the publication state shared by lessons, courses and classrooms.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusPublished Status = "Published"
	StatusArchived  Status = "Archived"
)

var statusNames = map[string]Status{
	"draft":     StatusDraft,
	"published": StatusPublished,
	"archived":  StatusArchived,
}

// ParseStatus normalizes a raw status string case-insensitively.
// The empty string parses to Draft (the default state on create).
func ParseStatus(raw string) (Status, bool) {
	if raw == "" {
		return StatusDraft, true
	}
	s, ok := statusNames[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// NormalizeStatus maps historically inconsistent stored state (case variants
// of the status string, legacy is_published/archived boolean flags) to the
// canonical enum. It is applied once, at the repository read boundary;
// callers never re-derive status themselves.
func NormalizeStatus(raw string, isPublished, archived bool) Status {
	if archived {
		return StatusArchived
	}
	if s, ok := ParseStatus(raw); ok {
		if s == StatusDraft && isPublished {
			return StatusPublished
		}
		return s
	}
	if isPublished {
		return StatusPublished
	}
	return StatusDraft
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
