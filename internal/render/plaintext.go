package render

import (
	"html"
	"regexp"
	"strings"
)

// paragraphBreak matches a blank line, including blank lines holding only
// whitespace.
var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n\s*`)

var bulletMarkers = []string{"-", "*", "•"}

// Plaintext escapes text and gives it minimal structure. Paragraphs are
// separated by blank lines. A paragraph whose first non-blank line starts with
// a bullet marker becomes a <ul> with one <li> per line; any other paragraph
// becomes a <p> with its line breaks kept as <br>.
func Plaintext(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	escaped := html.EscapeString(text)

	var b strings.Builder
	for _, para := range paragraphBreak.Split(escaped, -1) {
		lines := nonBlankLines(para)
		if len(lines) == 0 {
			continue
		}
		if _, ok := stripBullet(lines[0]); ok {
			b.WriteString("<ul>")
			for _, line := range lines {
				item, _ := stripBullet(line)
				b.WriteString("<li>")
				b.WriteString(item)
				b.WriteString("</li>")
			}
			b.WriteString("</ul>\n")
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>\n"))
		b.WriteString("</p>\n")
	}
	return b.String()
}

func nonBlankLines(para string) []string {
	var out []string
	for _, line := range strings.Split(para, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// stripBullet removes a leading bullet marker and the whitespace around it.
func stripBullet(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	for _, m := range bulletMarkers {
		if rest, ok := strings.CutPrefix(trimmed, m); ok {
			return strings.TrimLeft(rest, " \t"), true
		}
	}
	return strings.TrimSpace(line), false
}
