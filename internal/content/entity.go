// AngelaMos | 2026
// entity.go

package content

import (
	"time"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const (
	TypeSaju    = "saju"
	TypeGunghap = "gunghap"
	TypeFree    = "free"
)

type DetailMenu struct {
	ID                 int    `json:"id"`
	DetailMenu         string `json:"detail_menu"`
	InterpretationTool string `json:"interpretation_tool,omitempty"`
	CharCount          int    `json:"char_count,omitempty"`
	Thumbnail          string `json:"thumbnail,omitempty"`
}

type Subtitle struct {
	ID                 int          `json:"id"`
	Subtitle           string       `json:"subtitle"`
	InterpretationTool string       `json:"interpretation_tool,omitempty"`
	CharCount          int          `json:"char_count,omitempty"`
	Thumbnail          string       `json:"thumbnail,omitempty"`
	DetailMenus        []DetailMenu `json:"detail_menus,omitempty"`
}

type MenuItem struct {
	ID        int        `json:"id"`
	Value     string     `json:"value"`
	Thumbnail string     `json:"thumbnail,omitempty"`
	Subtitles []Subtitle `json:"subtitles"`
}

type Content struct {
	ID                int64                  `db:"id"                 json:"id"`
	ContentType       string                 `db:"content_type"       json:"content_type"`
	ContentName       string                 `db:"content_name"       json:"content_name"`
	RolePrompt        string                 `db:"role_prompt"        json:"role_prompt"`
	Restrictions      string                 `db:"restrictions"       json:"restrictions"`
	ThumbnailURL      string                 `db:"thumbnail_url"      json:"thumbnail_url"`
	Price             int                    `db:"price"              json:"price"`
	Summary           string                 `db:"summary"            json:"summary"`
	Introduction      string                 `db:"introduction"       json:"introduction"`
	Recommendation    string                 `db:"recommendation"     json:"recommendation"`
	MenuFontSize      int                    `db:"menu_font_size"     json:"menu_font_size"`
	SubtitleFontSize  int                    `db:"subtitle_font_size" json:"subtitle_font_size"`
	BodyFontSize      int                    `db:"body_font_size"     json:"body_font_size"`
	FontFamily        string                 `db:"font_family"        json:"font_family"`
	MenuItems         core.JSONB[[]MenuItem] `db:"menu_items"         json:"menu_items"`
	IsExposed         bool                   `db:"is_exposed"         json:"is_exposed"`
	IsNew             bool                   `db:"is_new"             json:"is_new"`
	PreviewThumbnails core.JSONB[[]string]   `db:"preview_thumbnails" json:"preview_thumbnails"`
	CreatedAt         time.Time              `db:"created_at"         json:"created_at"`
	UpdatedAt         time.Time              `db:"updated_at"         json:"updated_at"`
}

// ThumbnailURLs collects every stored image reference in the content,
// including those nested in the menu tree.
func (c *Content) ThumbnailURLs() []string {
	var urls []string
	add := func(u string) {
		if u != "" {
			urls = append(urls, u)
		}
	}

	add(c.ThumbnailURL)
	for _, u := range c.PreviewThumbnails.V {
		add(u)
	}
	for _, m := range c.MenuItems.V {
		add(m.Thumbnail)
		for _, s := range m.Subtitles {
			add(s.Thumbnail)
			for _, d := range s.DetailMenus {
				add(d.Thumbnail)
			}
		}
	}

	return urls
}
