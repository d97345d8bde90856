package fetcher

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// skipElements are containers whose text content is never evidence.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"svg":      true,
	"template": true,
}

// StripHTML extracts the visible text of an HTML document and collapses all
// whitespace runs to single spaces. Non-HTML input passes through mostly
// unchanged, which is what we want for plain-text pages.
func StripHTML(r io.Reader) string {
	z := html.NewTokenizer(r)

	var b strings.Builder
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipElements[string(name)] {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipElements[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}
