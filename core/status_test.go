package core

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Status
		wantOK bool
	}{
		{name: "empty defaults to draft", raw: "", want: StatusDraft, wantOK: true},
		{name: "canonical", raw: "Published", want: StatusPublished, wantOK: true},
		{name: "lowercase", raw: "published", want: StatusPublished, wantOK: true},
		{name: "uppercase", raw: "ARCHIVED", want: StatusArchived, wantOK: true},
		{name: "padded", raw: "  Draft ", want: StatusDraft, wantOK: true},
		{name: "unknown", raw: "live", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStatus(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ParseStatus(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseStatus(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		isPublished bool
		archived    bool
		want        Status
	}{
		{name: "archived flag wins", raw: "Published", isPublished: true, archived: true, want: StatusArchived},
		{name: "legacy published flag", raw: "", isPublished: true, want: StatusPublished},
		{name: "case variant", raw: "pUblished", want: StatusPublished},
		{name: "explicit archived string", raw: "archived", want: StatusArchived},
		{name: "garbage with published flag", raw: "???", isPublished: true, want: StatusPublished},
		{name: "garbage without flags", raw: "???", want: StatusDraft},
		{name: "all defaults", raw: "", want: StatusDraft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeStatus(tt.raw, tt.isPublished, tt.archived); got != tt.want {
				t.Errorf("NormalizeStatus(%q, %v, %v) = %v, want %v", tt.raw, tt.isPublished, tt.archived, got, tt.want)
			}
		})
	}
}
