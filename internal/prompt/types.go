// AngelaMos | 2026
// types.go

package prompt

import (
	"encoding/json"
)

type PersonInfo struct {
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	BirthDate    string `json:"birth_date"`
	BirthTime    string `json:"birth_time"`
	CalendarType string `json:"calendar_type"`
}

type MenuHeading struct {
	Value string `json:"value"`
}

type DetailMenuSpec struct {
	DetailMenu         string `json:"detail_menu"`
	InterpretationTool string `json:"interpretation_tool"`
	CharCount          int    `json:"char_count"`
}

type SubtitleSpec struct {
	Subtitle           string           `json:"subtitle"            validate:"required"`
	InterpretationTool string           `json:"interpretation_tool"`
	CharCount          int              `json:"char_count"          validate:"gte=0"`
	DetailMenus        []DetailMenuSpec `json:"detail_menus"`
}

type ReadingRequest struct {
	RolePrompt         string          `json:"role_prompt"`
	Restrictions       string          `json:"restrictions"`
	MenuItems          []MenuHeading   `json:"menu_items"`
	MenuSubtitles      []SubtitleSpec  `json:"menu_subtitles"      validate:"required,min=1,dive"`
	UserInfo           PersonInfo      `json:"user_info"`
	PartnerInfo        *PersonInfo     `json:"partner_info,omitempty"`
	ManseRyeokText     string          `json:"manse_ryeok_text"`
	ManseRyeokJSON     json.RawMessage `json:"manse_ryeok_json,omitempty"`
	Model              string          `json:"model"`
	IsSecondRequest    bool            `json:"is_second_request"`
	CompletedSubtitles []string        `json:"completed_subtitles"`
}

type QuestionRequest struct {
	Question       string     `json:"question"         validate:"required,max=1000"`
	MenuTitle      string     `json:"menu_title"`
	Subtitle       string     `json:"subtitle"`
	ContextHTML    string     `json:"context_html"`
	UserInfo       PersonInfo `json:"user_info"`
	ManseRyeokText string     `json:"manse_ryeok_text"`
	Model          string     `json:"model"`
	MaxAnswerChars int        `json:"-"`
}
