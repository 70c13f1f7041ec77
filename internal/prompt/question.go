// AngelaMos | 2026
// question.go

package prompt

import (
	"fmt"
	"strings"

	"github.com/carterperez-dev/fortune-api/internal/markup"
)

const maxQuestionContextRunes = 6000

func BuildQuestionPrompt(req QuestionRequest) string {
	var b strings.Builder

	b.WriteString("당신은 사주 풀이 결과를 바탕으로 추가 질문에 답하는 상담가입니다.\n\n")

	writePerson(&b, "의뢰인 정보", req.UserInfo)

	if s := strings.TrimSpace(req.ManseRyeokText); s != "" {
		b.WriteString("[만세력]\n")
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	if req.MenuTitle != "" || req.Subtitle != "" {
		b.WriteString("[질문 대상]\n")
		writeField(&b, "대메뉴", req.MenuTitle)
		writeField(&b, "소제목", req.Subtitle)
		b.WriteString("\n")
	}

	if ctx := markup.PlainText(req.ContextHTML); ctx != "" {
		b.WriteString("[기존 풀이 내용]\n")
		b.WriteString(markup.TruncateRunes(ctx, maxQuestionContextRunes))
		b.WriteString("\n\n")
	}

	b.WriteString("[질문]\n")
	b.WriteString(strings.TrimSpace(req.Question))
	b.WriteString("\n\n")

	b.WriteString("[답변 규칙]\n")
	b.WriteString("- 기존 풀이와 모순되지 않게 답합니다.\n")
	b.WriteString("- 마크다운이나 HTML 없이 자연스러운 문장으로만 답합니다.\n")
	if req.MaxAnswerChars > 0 {
		fmt.Fprintf(&b, "- 공백 포함 %d자 이내로 답합니다.\n", req.MaxAnswerChars)
	}

	return b.String()
}
