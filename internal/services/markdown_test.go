package services_test

import (
	"strings"
	"testing"

	"github.com/MegaGrindStone/playground-web-ui/internal/services"
)

func TestMarkdownRender(t *testing.T) {
	md := services.NewMarkdown()

	tests := []struct {
		name        string
		src         string
		contains    []string
		notContains []string
	}{
		{
			name:     "Emphasis",
			src:      "Hi **there**",
			contains: []string{"<strong>there</strong>"},
		},
		{
			name:     "Table",
			src:      "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "Highlighted code",
			src:      "```go\nfunc main() {}\n```",
			contains: []string{"<pre", "func"},
		},
		{
			name:        "Raw HTML dropped",
			src:         "before <script>alert(1)</script> after",
			contains:    []string{"before", "after"},
			notContains: []string{"<script>"},
		},
		{
			name:     "Hard wraps",
			src:      "line one\nline two",
			contains: []string{"<br"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := md.Render(tt.src)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(string(got), s) {
					t.Errorf("Render() = %s, want to contain %q", got, s)
				}
			}
			for _, s := range tt.notContains {
				if strings.Contains(string(got), s) {
					t.Errorf("Render() = %s, should not contain %q", got, s)
				}
			}
		})
	}
}
