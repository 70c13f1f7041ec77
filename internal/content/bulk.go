// AngelaMos | 2026
// bulk.go

package content

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	menuLine     = regexp.MustCompile(`^(\d+)\.\s*(.+)$`)
	subtitleLine = regexp.MustCompile(`^(\d+)-(\d+)\.\s*(.+)$`)
	detailLine   = regexp.MustCompile(`^(\d+)-(\d+)-(\d+)\.\s*(.+)$`)
	toolLine     = regexp.MustCompile(`^\[도구\]\s*(.*)$`)
	charsLine    = regexp.MustCompile(`^\[글자수\]\s*(\d+)\s*자?$`)
)

type BulkParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *BulkParseError) Error() string {
	return fmt.Sprintf("line %d (%q): %s", e.Line, e.Text, e.Reason)
}

// ParseBulkMenu turns a pasted outline into a menu tree:
//
//	1. 총운
//	1-1. 타고난 성격
//	[도구] 일간, 십성
//	[글자수] 500
//	1-1-1. 장점
//
// Annotations attach to the most recent subtitle or detail menu. Menu and
// subtitle titles keep their numbering so the reading prompt can key on it.
func ParseBulkMenu(text string) ([]MenuItem, error) {
	var (
		items   []MenuItem
		target  annotatable
		counter int
	)

	nextID := func() int {
		counter++
		return counter
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lineNo := i + 1

		switch {
		case detailLine.MatchString(line):
			m := detailLine.FindStringSubmatch(line)
			sub, err := findSubtitle(items, m[1], m[2])
			if err != nil {
				return nil, &BulkParseError{Line: lineNo, Text: line, Reason: err.Error()}
			}
			sub.DetailMenus = append(sub.DetailMenus, DetailMenu{
				ID:         nextID(),
				DetailMenu: strings.TrimSpace(m[4]),
			})
			target = detailTarget{&sub.DetailMenus[len(sub.DetailMenus)-1]}

		case subtitleLine.MatchString(line):
			m := subtitleLine.FindStringSubmatch(line)
			menu, err := findMenu(items, m[1])
			if err != nil {
				return nil, &BulkParseError{Line: lineNo, Text: line, Reason: err.Error()}
			}
			menu.Subtitles = append(menu.Subtitles, Subtitle{
				ID:       nextID(),
				Subtitle: fmt.Sprintf("%s-%s. %s", m[1], m[2], strings.TrimSpace(m[3])),
			})
			target = subtitleTarget{&menu.Subtitles[len(menu.Subtitles)-1]}

		case menuLine.MatchString(line):
			m := menuLine.FindStringSubmatch(line)
			if want := strconv.Itoa(len(items) + 1); m[1] != want {
				return nil, &BulkParseError{
					Line: lineNo, Text: line,
					Reason: "expected menu number " + want,
				}
			}
			items = append(items, MenuItem{
				ID:        nextID(),
				Value:     fmt.Sprintf("%s. %s", m[1], strings.TrimSpace(m[2])),
				Subtitles: []Subtitle{},
			})
			target = nil

		case toolLine.MatchString(line):
			if target == nil {
				return nil, &BulkParseError{Line: lineNo, Text: line, Reason: "annotation without a subtitle"}
			}
			target.setTool(strings.TrimSpace(toolLine.FindStringSubmatch(line)[1]))

		case charsLine.MatchString(line):
			if target == nil {
				return nil, &BulkParseError{Line: lineNo, Text: line, Reason: "annotation without a subtitle"}
			}
			n, err := strconv.Atoi(charsLine.FindStringSubmatch(line)[1])
			if err != nil {
				return nil, &BulkParseError{Line: lineNo, Text: line, Reason: "invalid char count"}
			}
			target.setChars(n)

		default:
			return nil, &BulkParseError{Line: lineNo, Text: line, Reason: "unrecognized line"}
		}
	}

	if len(items) == 0 {
		return nil, &BulkParseError{Reason: "no menu items found"}
	}

	return items, nil
}

func findMenu(items []MenuItem, menuNo string) (*MenuItem, error) {
	n, err := strconv.Atoi(menuNo)
	if err != nil || n < 1 || n > len(items) {
		return nil, fmt.Errorf("menu %s is not defined", menuNo)
	}
	return &items[n-1], nil
}

func findSubtitle(items []MenuItem, menuNo, subNo string) (*Subtitle, error) {
	menu, err := findMenu(items, menuNo)
	if err != nil {
		return nil, err
	}

	prefix := menuNo + "-" + subNo + "."
	for i := range menu.Subtitles {
		if strings.HasPrefix(menu.Subtitles[i].Subtitle, prefix) {
			return &menu.Subtitles[i], nil
		}
	}
	return nil, fmt.Errorf("subtitle %s-%s is not defined", menuNo, subNo)
}

type annotatable interface {
	setTool(string)
	setChars(int)
}

type subtitleTarget struct{ s *Subtitle }

func (t subtitleTarget) setTool(v string) { t.s.InterpretationTool = v }
func (t subtitleTarget) setChars(n int)   { t.s.CharCount = n }

type detailTarget struct{ d *DetailMenu }

func (t detailTarget) setTool(v string) { t.d.InterpretationTool = v }
func (t detailTarget) setChars(n int)   { t.d.CharCount = n }
