package news

import (
	"strings"

	"github.com/archivesocial/archive/backend/internal/util"
	"golang.org/x/net/html"
)

// StripHTML drops tags and collapses whitespace, keeping decoded text
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return util.CollapseWhitespace(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return util.CollapseWhitespace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Tags separate words ("a</p><p>b" reads as "a b")
			b.WriteByte(' ')
		}
	}
}
