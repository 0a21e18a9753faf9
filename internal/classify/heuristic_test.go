package classify

import (
	"strings"
	"testing"

	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

func TestDetectPrompt(t *testing.T) {
	text := "Act as a senior Python reviewer. Review my code."

	rec, ok := DetectPrompt(text)
	if !ok {
		t.Fatal("DetectPrompt() ok = false, want true")
	}
	if rec.Section != record.SectionPrompts {
		t.Errorf("Section = %q, want %q", rec.Section, record.SectionPrompts)
	}
	if rec.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100", rec.Confidence)
	}
	if rec.URL != record.URLPlaceholder {
		t.Errorf("URL = %q, want %q", rec.URL, record.URLPlaceholder)
	}
	if rec.Alternative != "" {
		t.Errorf("Alternative = %q, want empty", rec.Alternative)
	}
	if rec.PromptBody != text {
		t.Errorf("PromptBody = %q, want %q", rec.PromptBody, text)
	}
	if rec.Name != text {
		t.Errorf("Name = %q, want %q", rec.Name, text)
	}
}

func TestDetectPrompt_BodyStartsAtEarliestMarker(t *testing.T) {
	text := "Found this gem on a forum:\n\n<Role>\nYou are a travel planner.\n  Keep   spacing.\n</Role>"

	rec, ok := DetectPrompt(text)
	if !ok {
		t.Fatal("DetectPrompt() ok = false, want true")
	}
	want := "<Role>\nYou are a travel planner.\n  Keep   spacing.\n</Role>"
	if rec.PromptBody != want {
		t.Errorf("PromptBody = %q, want %q", rec.PromptBody, want)
	}
	if rec.Name != "Found this gem on a forum:" {
		t.Errorf("Name = %q", rec.Name)
	}
}

func TestDetectPrompt_NoMarker(t *testing.T) {
	for _, text := range []string{
		"",
		"https://github.com/acme/tool",
		"act as a lowercase marker does not count",
	} {
		if _, ok := DetectPrompt(text); ok {
			t.Errorf("DetectPrompt(%q) ok = true, want false", text)
		}
	}
}

func TestPromptTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"skips short lines", "Hi\nPrompt: write haiku about Go", "Prompt: write haiku about Go"},
		{"skips links", "https://example.com/long/path\nYou are a helpful bot", "You are a helpful bot"},
		{"generic when nothing fits", "Prompt:\nshort", defaultPromptTitle},
		{"truncated", strings.Repeat("x", 70), strings.Repeat("x", 60) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := promptTitle(tt.text); got != tt.want {
				t.Errorf("promptTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
