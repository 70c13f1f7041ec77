// AngelaMos | 2026
// reading.go

package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/carterperez-dev/fortune-api/internal/markup"
)

const outputFormatRules = `[출력 형식]
- 반드시 HTML만 출력합니다. 마크다운, 코드 블록(` + "```" + `), ** 강조 표기는 사용하지 않습니다.
- 대메뉴마다 <div class="menu-section"> 안에 <h2 class="menu-title">대메뉴 제목</h2>을 둡니다.
- 소제목마다 <div class="subtitle-section" data-subtitle="번호"> 안에
  <h3 class="subtitle-title">번호. 소제목</h3>과 <div class="subtitle-content">본문</div>을 작성합니다.
  data-subtitle 값은 목차의 "대메뉴번호-소제목번호"(예: 1-2)와 정확히 같아야 합니다.
- 상세 메뉴가 있으면 소제목 본문 안에 <div class="detail-menu-section"><h4 class="detail-menu-title">제목</h4>본문</div>으로 작성합니다.
- 문단은 <p>로 나누고 <br>을 연속해서 쓰지 않습니다.
- 목차의 순서와 번호를 그대로 지키고, 각 소제목의 분량 지시를 따릅니다.`

// BuildReadingPrompt assembles the single prompt string sent for a reading.
func BuildReadingPrompt(req ReadingRequest) string {
	var b strings.Builder

	if s := strings.TrimSpace(req.RolePrompt); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	if s := strings.TrimSpace(req.Restrictions); s != "" {
		b.WriteString("[금지 사항]\n")
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	writePerson(&b, "의뢰인 정보", req.UserInfo)
	if req.PartnerInfo != nil {
		writePerson(&b, "상대방 정보", *req.PartnerInfo)
	}

	writeManseRyeok(&b, req.ManseRyeokText, req.ManseRyeokJSON)

	b.WriteString("[작성할 목차]\n")
	writeOutline(&b, req.MenuItems, req.MenuSubtitles)
	b.WriteString("\n")

	b.WriteString(outputFormatRules)
	b.WriteString("\n")

	if req.IsSecondRequest {
		b.WriteString("\n")
		writeResumption(&b, req.MenuSubtitles, req.CompletedSubtitles)
	}

	return b.String()
}

// RemainingSubtitles returns the subtitles whose key is not in completed,
// preserving order.
func RemainingSubtitles(subtitles []SubtitleSpec, completed []string) []SubtitleSpec {
	done := make(map[string]struct{}, len(completed))
	for _, c := range completed {
		if k := markup.SubtitleKey(c); k != "" {
			done[k] = struct{}{}
		}
	}

	remaining := make([]SubtitleSpec, 0, len(subtitles))
	for _, s := range subtitles {
		if _, ok := done[markup.SubtitleKey(s.Subtitle)]; ok {
			continue
		}
		remaining = append(remaining, s)
	}
	return remaining
}

func writePerson(b *strings.Builder, title string, p PersonInfo) {
	if p == (PersonInfo{}) {
		return
	}

	fmt.Fprintf(b, "[%s]\n", title)
	writeField(b, "이름", p.Name)
	writeField(b, "성별", genderLabel(p.Gender))

	if p.BirthDate != "" {
		birth := p.BirthDate
		if label := calendarLabel(p.CalendarType); label != "" {
			birth += " (" + label + ")"
		}
		writeField(b, "생년월일", birth)
	}

	birthTime := p.BirthTime
	if p.BirthDate != "" && birthTime == "" {
		birthTime = "모름"
	}
	writeField(b, "태어난 시간", birthTime)
	b.WriteString("\n")
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func writeManseRyeok(b *strings.Builder, text string, raw json.RawMessage) {
	text = strings.TrimSpace(text)
	if text == "" && len(raw) == 0 {
		return
	}

	b.WriteString("[만세력]\n")
	if text != "" {
		b.WriteString(text)
		b.WriteString("\n")
	}

	if len(raw) > 0 && string(raw) != "null" {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err == nil {
			b.WriteString("만세력 데이터(JSON):\n")
			b.Write(pretty.Bytes())
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
}

func writeOutline(b *strings.Builder, menus []MenuHeading, subtitles []SubtitleSpec) {
	lastMenu := -1

	for _, s := range subtitles {
		if menuNo := menuNumber(s.Subtitle); menuNo != lastMenu {
			lastMenu = menuNo
			if menuNo >= 1 && menuNo <= len(menus) {
				if title := strings.TrimSpace(menus[menuNo-1].Value); title != "" {
					fmt.Fprintf(b, "%d. %s\n", menuNo, stripNumber(title))
				}
			}
		}

		fmt.Fprintf(b, "- %s", strings.TrimSpace(s.Subtitle))
		writeBudget(b, s.InterpretationTool, s.CharCount)
		b.WriteString("\n")

		for _, d := range s.DetailMenus {
			if strings.TrimSpace(d.DetailMenu) == "" {
				continue
			}
			fmt.Fprintf(b, "  - 상세: %s", strings.TrimSpace(d.DetailMenu))
			writeBudget(b, d.InterpretationTool, d.CharCount)
			b.WriteString("\n")
		}
	}
}

func writeBudget(b *strings.Builder, tool string, chars int) {
	notes := make([]string, 0, 2)
	if tool = strings.TrimSpace(tool); tool != "" {
		notes = append(notes, "해석 도구: "+tool)
	}
	if chars > 0 {
		notes = append(notes, "분량: 약 "+strconv.Itoa(chars)+"자")
	}
	if len(notes) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(notes, ", "))
	}
}

func writeResumption(b *strings.Builder, subtitles []SubtitleSpec, completed []string) {
	keys := make([]string, 0, len(completed))
	for _, c := range completed {
		if k := markup.SubtitleKey(c); k != "" {
			keys = append(keys, k)
		}
	}

	remaining := RemainingSubtitles(subtitles, completed)
	titles := make([]string, 0, len(remaining))
	for _, s := range remaining {
		titles = append(titles, strings.TrimSpace(s.Subtitle))
	}

	b.WriteString("[이어서 작성]\n")
	b.WriteString("이전 응답이 중간에 끊겼습니다.\n")
	if len(keys) > 0 {
		fmt.Fprintf(b, "이미 작성된 소제목: %s\n", strings.Join(keys, ", "))
		b.WriteString("위 소제목은 절대 다시 작성하지 마세요.\n")
	}
	if len(titles) > 0 {
		fmt.Fprintf(b, "남은 소제목만 순서대로 작성하세요: %s\n", strings.Join(titles, " / "))
	}
	b.WriteString("인사말이나 앞선 내용의 요약 없이 바로 다음 소제목의 HTML부터 시작하세요.\n")
}

func menuNumber(subtitle string) int {
	key := markup.SubtitleKey(subtitle)
	if key == "" {
		return -1
	}

	n, err := strconv.Atoi(key[:strings.IndexByte(key, '-')])
	if err != nil {
		return -1
	}
	return n
}

func stripNumber(title string) string {
	trimmed := strings.TrimLeft(title, "0123456789")
	if len(trimmed) < len(title) {
		trimmed = strings.TrimLeft(trimmed, ". ")
		if trimmed != "" {
			return trimmed
		}
	}
	return title
}

func genderLabel(g string) string {
	switch strings.ToLower(g) {
	case "male", "m", "남", "남자", "남성":
		return "남성"
	case "female", "f", "여", "여자", "여성":
		return "여성"
	}
	return g
}

func calendarLabel(c string) string {
	switch strings.ToLower(c) {
	case "solar", "양력":
		return "양력"
	case "lunar", "음력":
		return "음력"
	case "lunar_leap", "윤달":
		return "음력 윤달"
	}
	return ""
}
