// AngelaMos | 2026
// dto.go

package savedresult

import (
	"time"

	"github.com/carterperez-dev/fortune-api/internal/content"
	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/prompt"
)

type SaveRequest struct {
	ContentID *int64             `json:"content_id" validate:"omitempty,gte=1"`
	Title     string             `json:"title"      validate:"required,max=300"`
	HTML      string             `json:"html"       validate:"required"`
	Model     string             `json:"model"      validate:"max=100"`
	UserName  string             `json:"user_name"  validate:"max=100"`
	UserInfo  prompt.PersonInfo  `json:"user_info"`
	MenuItems []content.MenuItem `json:"menu_items"`
	Phone     string             `json:"phone"      validate:"required,max=20,phone"`
	Password  string             `json:"password"   validate:"required,min=4,max=64"`
}

type LookupRequest struct {
	Phone    string `json:"phone"    validate:"required,max=20,phone"`
	Password string `json:"password" validate:"required,min=4,max=64"`
}

type ListParams struct {
	core.PageParams
	Search string
}

type Summary struct {
	ID        string    `json:"id"`
	ContentID *int64    `json:"content_id"`
	Title     string    `json:"title"`
	UserName  string    `json:"user_name"`
	Model     string    `json:"model"`
	PDFURL    string    `json:"pdf_url"`
	CreatedAt time.Time `json:"created_at"`
}

type PDFResponse struct {
	URL string `json:"url"`
}

func ToSummary(r *SavedResult) Summary {
	return Summary{
		ID:        r.ID,
		ContentID: r.ContentID,
		Title:     r.Title,
		UserName:  r.UserName,
		Model:     r.Model,
		PDFURL:    r.PDFURL,
		CreatedAt: r.CreatedAt,
	}
}

func ToSummaries(results []SavedResult) []Summary {
	out := make([]Summary, 0, len(results))
	for i := range results {
		out = append(out, ToSummary(&results[i]))
	}
	return out
}
