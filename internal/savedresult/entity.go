// AngelaMos | 2026
// entity.go

package savedresult

import (
	"time"

	"github.com/carterperez-dev/fortune-api/internal/content"
	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/prompt"
)

type SavedResult struct {
	ID           string                         `db:"id"            json:"id"`
	ContentID    *int64                         `db:"content_id"    json:"content_id"`
	Title        string                         `db:"title"         json:"title"`
	HTML         string                         `db:"html"          json:"html"`
	Model        string                         `db:"model"         json:"model"`
	UserName     string                         `db:"user_name"     json:"user_name"`
	UserInfo     core.JSONB[prompt.PersonInfo]  `db:"user_info"     json:"user_info"`
	MenuItems    core.JSONB[[]content.MenuItem] `db:"menu_items"    json:"menu_items"`
	PDFURL       string                         `db:"pdf_url"       json:"pdf_url"`
	CredentialID *string                        `db:"credential_id" json:"-"`
	CreatedAt    time.Time                      `db:"created_at"    json:"created_at"`
}

type UserCredential struct {
	ID                string    `db:"id"`
	PhoneEncrypted    string    `db:"phone_encrypted"`
	PasswordEncrypted string    `db:"password_encrypted"`
	CreatedAt         time.Time `db:"created_at"`
}
