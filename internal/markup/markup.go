// AngelaMos | 2026
// markup.go

package markup

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	SectionClass = "subtitle-section"
	SectionAttr  = "data-subtitle"
)

var (
	codeFenceOpen  = regexp.MustCompile("```(?:html|HTML)?[ \t]*\r?\n?")
	repeatedBreaks = regexp.MustCompile(`(?i)(<br\s*/?>\s*){2,}`)
	headingGap     = regexp.MustCompile(`(?i)(</h[1-6]>)\s+(<)`)
	subtitleKey    = regexp.MustCompile(`^\s*(\d+)-(\d+)`)
	spaceRun       = regexp.MustCompile(`[ \t]+`)
	blankLines     = regexp.MustCompile(`\n\s*\n+`)
)

// Clean normalizes raw model output into displayable HTML.
func Clean(raw string) string {
	s := codeFenceOpen.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "**", "")
	s = repeatedBreaks.ReplaceAllString(s, "<br>")
	s = headingGap.ReplaceAllString(s, "$1$2")
	return strings.TrimSpace(s)
}

// SubtitleKey returns the "menu-subtitle" number prefix of a title such as
// "2-3. 올해의 재물운", or "" when the title carries none.
func SubtitleKey(title string) string {
	m := subtitleKey.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return m[1] + "-" + m[2]
}

// CompletedSubtitles lists the keys of the subtitle sections present in
// doc, in document order and without duplicates.
func CompletedSubtitles(doc string) []string {
	z := html.NewTokenizer(strings.NewReader(doc))
	seen := make(map[string]struct{})
	keys := make([]string, 0)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return keys
		}

		if tt != html.StartTagToken {
			continue
		}

		key := sectionKey(z)
		if key == "" {
			continue
		}

		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
}

// DropSubtitles removes every subtitle section whose key is in keys. The
// remaining markup is copied through as written, tag case included, and
// the result is trimmed.
func DropSubtitles(doc string, keys []string) string {
	if len(keys) == 0 {
		return doc
	}

	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if norm := SubtitleKey(k); norm != "" {
			drop[norm] = struct{}{}
		}
	}

	z := html.NewTokenizer(strings.NewReader(doc))
	var out strings.Builder
	out.Grow(len(doc))
	depth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if depth > 0 {
			switch tt {
			case html.StartTagToken:
				if isDiv(z) {
					depth++
				}
			case html.EndTagToken:
				if isDiv(z) {
					depth--
				}
			}
			continue
		}

		// TagName and TagAttr lowercase the tokenizer buffer in place.
		raw := bytes.Clone(z.Raw())

		if tt == html.StartTagToken {
			if key := sectionKey(z); key != "" {
				if _, ok := drop[key]; ok {
					depth = 1
					continue
				}
			}
		}

		out.Write(raw)
	}

	return strings.TrimSpace(out.String())
}

// PlainText flattens an HTML fragment to text, keeping paragraph breaks.
func PlainText(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return strings.TrimSpace(doc)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" {
				return
			}
		}

		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}

		if node.Type == html.ElementNode && isBlock(node.Data) {
			buf.WriteString("\n")
		}
	}
	walk(root)

	text := spaceRun.ReplaceAllString(buf.String(), " ")
	text = blankLines.ReplaceAllString(text, "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func TruncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}

func sectionKey(z *html.Tokenizer) string {
	name, hasAttr := z.TagName()
	if string(name) != "div" || !hasAttr {
		return ""
	}

	var class, key string
	for {
		attr, val, more := z.TagAttr()
		switch string(attr) {
		case "class":
			class = string(val)
		case SectionAttr:
			key = string(val)
		}
		if !more {
			break
		}
	}

	if !hasClass(class, SectionClass) {
		return ""
	}
	return SubtitleKey(key)
}

func isDiv(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	return string(name) == "div"
}

func hasClass(classAttr, want string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == want {
			return true
		}
	}
	return false
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "br", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
		return true
	}
	return false
}
