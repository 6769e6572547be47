package toon

import (
	"strings"
	"testing"
)

// --- Image stripping ---

func TestStripImages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no images untouched", "plain text", "plain text"},
		{
			"single image",
			"before ![screenshot](https://files.example/a.png) after",
			"before  after\n[1 image]",
		},
		{
			"multiple images",
			"![a](u1) and ![b](u2)",
			"and\n[2 images]",
		},
		{
			"image only",
			"![diagram](https://files.example/d.png)",
			"[1 image]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripImages(tt.in); got != tt.want {
				t.Errorf("StripImages(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- Issue URL collapsing ---

func TestCollapseIssueURLs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"bare URL",
			"see https://linear.app/acme/issue/SQT-12/fix-login-crash for context",
			"see SQT-12 for context",
		},
		{
			"bare URL without slug",
			"see https://linear.app/acme/issue/SQT-12",
			"see SQT-12",
		},
		{
			"markdown link with identifier text",
			"blocked by [SQT-12](https://linear.app/acme/issue/SQT-12/fix-login-crash)",
			"blocked by SQT-12",
		},
		{
			"markdown link with custom text preserved",
			"see [the login bug](https://linear.app/acme/issue/SQT-12/fix-login-crash)",
			"see [the login bug](https://linear.app/acme/issue/SQT-12/fix-login-crash)",
		},
		{
			"mixed forms in one text",
			"[SQT-1](https://linear.app/acme/issue/SQT-1) vs [old report](https://linear.app/acme/issue/SQT-2) vs https://linear.app/acme/issue/SQT-3/x",
			"SQT-1 vs [old report](https://linear.app/acme/issue/SQT-2) vs SQT-3",
		},
		{
			"non-issue links untouched",
			"[docs](https://example.com/docs)",
			"[docs](https://example.com/docs)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseIssueURLs(tt.in); got != tt.want {
				t.Errorf("CollapseIssueURLs(%q)\n got %q\nwant %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeRichText_NoPlaceholderLeaks(t *testing.T) {
	in := "![img](u) and [custom](https://linear.app/acme/issue/SQT-5/slug) and https://linear.app/acme/issue/SQT-6"
	got := NormalizeRichText(in)
	if strings.ContainsRune(got, '\x00') {
		t.Errorf("placeholder bytes leaked into output: %q", got)
	}
	if !strings.Contains(got, "[custom](https://linear.app/acme/issue/SQT-5/slug)") {
		t.Errorf("custom-text link not preserved: %q", got)
	}
	if !strings.Contains(got, "SQT-6") || strings.Contains(got, "issue/SQT-6") {
		t.Errorf("bare URL not collapsed: %q", got)
	}
}
