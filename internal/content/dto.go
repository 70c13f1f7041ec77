// AngelaMos | 2026
// dto.go

package content

import (
	"time"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

type ListContentsParams struct {
	core.PageParams
	Search      string `json:"search"`
	ContentType string `json:"content_type"`
}

type DetailMenuInput struct {
	ID                 int    `json:"id"`
	DetailMenu         string `json:"detail_menu"         validate:"required,max=500"`
	InterpretationTool string `json:"interpretation_tool" validate:"max=2000"`
	CharCount          int    `json:"char_count"          validate:"gte=0"`
	Thumbnail          string `json:"thumbnail"           validate:"omitempty,url"`
}

type SubtitleInput struct {
	ID                 int               `json:"id"`
	Subtitle           string            `json:"subtitle"            validate:"required,max=500"`
	InterpretationTool string            `json:"interpretation_tool" validate:"max=2000"`
	CharCount          int               `json:"char_count"          validate:"gte=0"`
	Thumbnail          string            `json:"thumbnail"           validate:"omitempty,url"`
	DetailMenus        []DetailMenuInput `json:"detail_menus"        validate:"dive"`
}

type MenuItemInput struct {
	ID        int             `json:"id"`
	Value     string          `json:"value"     validate:"required,max=500"`
	Thumbnail string          `json:"thumbnail" validate:"omitempty,url"`
	Subtitles []SubtitleInput `json:"subtitles" validate:"dive"`
}

type SaveContentRequest struct {
	ContentType       string          `json:"content_type"       validate:"required,max=50"`
	ContentName       string          `json:"content_name"       validate:"required,max=200"`
	RolePrompt        string          `json:"role_prompt"`
	Restrictions      string          `json:"restrictions"`
	ThumbnailURL      string          `json:"thumbnail_url"      validate:"omitempty,url"`
	Price             int             `json:"price"              validate:"gte=0"`
	Summary           string          `json:"summary"`
	Introduction      string          `json:"introduction"`
	Recommendation    string          `json:"recommendation"`
	MenuFontSize      int             `json:"menu_font_size"     validate:"gte=0,lte=100"`
	SubtitleFontSize  int             `json:"subtitle_font_size" validate:"gte=0,lte=100"`
	BodyFontSize      int             `json:"body_font_size"     validate:"gte=0,lte=100"`
	FontFamily        string          `json:"font_family"        validate:"max=100"`
	MenuItems         []MenuItemInput `json:"menu_items"         validate:"dive"`
	IsExposed         bool            `json:"is_exposed"`
	IsNew             bool            `json:"is_new"`
	PreviewThumbnails []string        `json:"preview_thumbnails" validate:"dive,url"`
}

// PublicContent is the storefront view. Prompt text stays server-side.
type PublicContent struct {
	ID                int64      `json:"id"`
	ContentType       string     `json:"content_type"`
	ContentName       string     `json:"content_name"`
	ThumbnailURL      string     `json:"thumbnail_url"`
	Price             int        `json:"price"`
	Summary           string     `json:"summary"`
	Introduction      string     `json:"introduction"`
	Recommendation    string     `json:"recommendation"`
	MenuItems         []MenuItem `json:"menu_items"`
	IsNew             bool       `json:"is_new"`
	PreviewThumbnails []string   `json:"preview_thumbnails"`
	CreatedAt         time.Time  `json:"created_at"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

type BulkMenuRequest struct {
	Text string `json:"text" validate:"required,max=200000"`
}

func (r SaveContentRequest) apply(c *Content) {
	c.ContentType = r.ContentType
	c.ContentName = r.ContentName
	c.RolePrompt = r.RolePrompt
	c.Restrictions = r.Restrictions
	c.ThumbnailURL = r.ThumbnailURL
	c.Price = r.Price
	c.Summary = r.Summary
	c.Introduction = r.Introduction
	c.Recommendation = r.Recommendation
	c.MenuFontSize = r.MenuFontSize
	c.SubtitleFontSize = r.SubtitleFontSize
	c.BodyFontSize = r.BodyFontSize
	c.FontFamily = r.FontFamily
	c.IsExposed = r.IsExposed
	c.IsNew = r.IsNew
	c.MenuItems = core.NewJSONB(toMenuItems(r.MenuItems))

	previews := r.PreviewThumbnails
	if previews == nil {
		previews = []string{}
	}
	c.PreviewThumbnails = core.NewJSONB(previews)
}

func toMenuItems(in []MenuItemInput) []MenuItem {
	items := make([]MenuItem, 0, len(in))
	for _, m := range in {
		subtitles := make([]Subtitle, 0, len(m.Subtitles))
		for _, s := range m.Subtitles {
			var details []DetailMenu
			for _, d := range s.DetailMenus {
				details = append(details, DetailMenu(d))
			}
			subtitles = append(subtitles, Subtitle{
				ID:                 s.ID,
				Subtitle:           s.Subtitle,
				InterpretationTool: s.InterpretationTool,
				CharCount:          s.CharCount,
				Thumbnail:          s.Thumbnail,
				DetailMenus:        details,
			})
		}
		items = append(items, MenuItem{
			ID:        m.ID,
			Value:     m.Value,
			Thumbnail: m.Thumbnail,
			Subtitles: subtitles,
		})
	}
	return items
}

func ToPublicContent(c *Content) PublicContent {
	return PublicContent{
		ID:                c.ID,
		ContentType:       c.ContentType,
		ContentName:       c.ContentName,
		ThumbnailURL:      c.ThumbnailURL,
		Price:             c.Price,
		Summary:           c.Summary,
		Introduction:      c.Introduction,
		Recommendation:    c.Recommendation,
		MenuItems:         c.MenuItems.V,
		IsNew:             c.IsNew,
		PreviewThumbnails: c.PreviewThumbnails.V,
		CreatedAt:         c.CreatedAt,
	}
}
