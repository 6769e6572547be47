package toon

import (
	"fmt"
	"regexp"
	"strings"
)

// Rich-text normalization runs on designated fields (description, body)
// before truncation and escaping. It strips content that burns tokens
// without informing the agent: embedded images and verbose issue URLs.

var (
	// markdown image syntax: ![alt](url)
	imagePattern = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)

	// a Linear issue URL, optionally with a trailing title slug
	issueURLPattern = regexp.MustCompile(`https://linear\.app/[A-Za-z0-9_-]+/issue/([A-Z][A-Z0-9]*-[0-9]+)(?:/[A-Za-z0-9_-]*)?`)

	// a markdown link whose target is an issue URL
	issueLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\((https://linear\.app/[A-Za-z0-9_-]+/issue/([A-Z][A-Z0-9]*-[0-9]+)[^)]*)\)`)
)

// NormalizeRichText applies all rich-text rewrites: image stripping, then
// issue-URL collapsing.
func NormalizeRichText(s string) string {
	return CollapseIssueURLs(StripImages(s))
}

// StripImages removes markdown image syntax and appends a counter so the
// agent knows attachments exist without paying for their URLs.
func StripImages(s string) string {
	count := len(imagePattern.FindAllStringIndex(s, -1))
	if count == 0 {
		return s
	}
	cleaned := strings.TrimSpace(imagePattern.ReplaceAllString(s, ""))
	note := fmt.Sprintf("[%d image%s]", count, plural(count))
	if cleaned == "" {
		return note
	}
	return cleaned + "\n" + note
}

// CollapseIssueURLs rewrites issue cross-references down to the bare
// issue identifier:
//
//   - [SQT-12](https://linear.app/acme/issue/SQT-12/slug) → SQT-12
//   - https://linear.app/acme/issue/SQT-12/slug → SQT-12
//   - [see the login bug](https://linear.app/acme/issue/SQT-12) → unchanged
//
// Markdown links with custom visible text are preserved: they are swapped
// for placeholders during the bare-URL pass, then restored.
func CollapseIssueURLs(s string) string {
	// Pass 1: links whose visible text is already the identifier.
	s = issueLinkPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := issueLinkPattern.FindStringSubmatch(m)
		if sub[1] == sub[3] {
			return sub[3]
		}
		return m
	})

	// Pass 2: protect the remaining (custom-text) links so the bare-URL
	// rewrite cannot reach inside them.
	var protected []string
	s = issueLinkPattern.ReplaceAllStringFunc(s, func(m string) string {
		protected = append(protected, m)
		return fmt.Sprintf("\x00%d\x00", len(protected)-1)
	})

	// Pass 3: bare URLs become identifiers.
	s = issueURLPattern.ReplaceAllString(s, "$1")

	// Pass 4: restore protected links.
	for i, link := range protected {
		s = strings.Replace(s, fmt.Sprintf("\x00%d\x00", i), link, 1)
	}
	return s
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
