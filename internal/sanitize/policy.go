// Package sanitize strips untrusted markup down to a fixed allowlist.
//
// The policy starts from bluemonday's UGC policy and widens it only for the
// attributes the renderer itself emits: heading anchors, code language
// classes, task-list checkboxes and the renderer's sentinel paragraphs.
// Inline styles, event handlers, scripts and non-http URL schemes are never
// allowed.
package sanitize

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	headingIDRegexp    = regexp.MustCompile(`^[a-z0-9_-]+$`)
	languageRegexp     = regexp.MustCompile(`^[A-Za-z0-9_+#.-]+$`)
	sentinelRegexp     = regexp.MustCompile(`^(content-empty|content-error)$`)
	highlightedRegexp  = regexp.MustCompile(`^true$`)
	checkboxTypeRegexp = regexp.MustCompile(`^checkbox$`)
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// Policy returns the shared, fully built policy. bluemonday policies are safe
// for concurrent Sanitize calls once construction is finished.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = newPolicy()
	})
	return policy
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)

	p.AllowAttrs("id").Matching(headingIDRegexp).OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "span", "pre")
	p.AllowAttrs("data-language").Matching(languageRegexp).OnElements("pre")
	p.AllowAttrs("data-highlighted").Matching(highlightedRegexp).OnElements("code")
	p.AllowAttrs("class").Matching(sentinelRegexp).OnElements("p", "div")

	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")

	p.AllowElements("input")
	p.AllowAttrs("type").Matching(checkboxTypeRegexp).OnElements("input")
	p.AllowAttrs("checked", "disabled").Matching(regexp.MustCompile(`^(|checked|disabled)$`)).OnElements("input")

	p.AllowElements("del", "s", "mark", "sup", "sub", "figure", "figcaption")

	return p
}

// Sanitize returns html reduced to the allowlist. It is idempotent:
// Sanitize(Sanitize(h)) == Sanitize(h).
func Sanitize(html string) string {
	return Policy().Sanitize(html)
}

// Diff reports the edit from input to its sanitized form, so authors can see
// what the sanitizer dropped.
func Diff(input string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(input, Sanitize(input), false)
	return dmp.DiffCleanupSemantic(diffs)
}

// Removed returns only the fragments deleted by sanitization.
func Removed(input string) []string {
	var out []string
	for _, d := range Diff(input) {
		if d.Type == diffmatchpatch.DiffDelete {
			out = append(out, d.Text)
		}
	}
	return out
}
