package generation

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildPromptPerStyle(t *testing.T) {
	tests := []struct {
		style Style
		want  string
	}{
		{StyleClassic, "classic coloring book page"},
		{StyleBold, "thick bold outlines"},
		{StyleKawaii, "kawaii-style"},
		{StylePortrait, "portrait photo"},
	}

	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			got, err := BuildPrompt(tt.style, "")
			if err != nil {
				t.Fatalf("BuildPrompt: %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("prompt for %s missing %q: %s", tt.style, tt.want, got)
			}
			if strings.Contains(got, "Add the name") {
				t.Errorf("unpersonalised prompt must not carry a name clause: %s", got)
			}
		})
	}
}

func TestBuildPromptPersonalisation(t *testing.T) {
	got, err := BuildPrompt(StyleClassic, "Maya")
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if !strings.Contains(got, `"Maya"`) {
		t.Errorf("expected name in prompt, got: %s", got)
	}

	// Whitespace-only names are treated as absent.
	got, err = BuildPrompt(StyleClassic, "   ")
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if strings.Contains(got, "Add the name") {
		t.Errorf("blank name must not personalise: %s", got)
	}
}

func TestBuildPromptUnknownStyle(t *testing.T) {
	_, err := BuildPrompt(Style("vaporwave"), "")
	if !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("expected ErrInvalidStyle, got %v", err)
	}
}

func TestIsValidStyle(t *testing.T) {
	for _, s := range []string{"classic", "bold", "kawaii", "portrait"} {
		if !IsValidStyle(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if IsValidStyle("") || IsValidStyle("oil-painting") {
		t.Error("unknown styles must be rejected")
	}
}
