package debug

import (
	"log/slog"
	"testing"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "providers", map[string]bool{"providers": true}},
		{"multiple", "providers,streaming", map[string]bool{"providers": true, "streaming": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " providers , streaming ", map[string]bool{"providers": true, "streaming": true}},
		{"uppercase normalized", "PROVIDERS,Streaming", map[string]bool{"providers": true, "streaming": true}},
		{"empty segments", "providers,,streaming", map[string]bool{"providers": true, "streaming": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("providers,engine")

	if !Enabled("providers") || !Enabled("engine") {
		t.Error("configured categories should be enabled")
	}
	if Enabled("mcp") {
		t.Error("mcp should not be enabled")
	}
}

func TestEnabledAll(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("all")

	for _, cat := range []string{"providers", "engine", "streaming", "anything"} {
		if !Enabled(cat) {
			t.Errorf("%q should be enabled under all", cat)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{" debug ", slog.LevelDebug},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
