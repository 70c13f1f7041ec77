// AngelaMos | 2026
// document.go

package pdf

import (
	"fmt"
	"html"
)

const baseCSS = `
* { box-sizing: border-box; }
html, body { margin: 0; padding: 0; background: #ffffff; }
body {
  width: %dpx;
  padding: 32px 40px;
  font-family: "Pretendard", "Noto Sans KR", "Apple SD Gothic Neo", sans-serif;
  font-size: 15px;
  line-height: 1.75;
  color: #222222;
  word-break: keep-all;
  -webkit-print-color-adjust: exact;
  print-color-adjust: exact;
}
h1.document-title { font-size: 24px; margin: 0 0 24px; }
.menu-section { margin-bottom: 32px; }
.menu-title { font-size: 20px; font-weight: 700; margin: 0 0 16px; }
.subtitle-section { margin-bottom: 24px; break-inside: avoid-page; }
.subtitle-title { font-size: 17px; font-weight: 700; margin: 0 0 8px; }
.subtitle-content p { margin: 0 0 10px; }
.detail-menu-section { margin: 12px 0 0 12px; }
img { max-width: 100%%; height: auto; }
`

// Document wraps a reading fragment in a standalone page with the print
// stylesheet applied.
func Document(title, body string, widthPx int) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>%s</style>
</head>
<body>
<h1 class="document-title">%s</h1>
%s
</body>
</html>`,
		html.EscapeString(title),
		fmt.Sprintf(baseCSS, widthPx),
		html.EscapeString(title),
		body,
	)
}
