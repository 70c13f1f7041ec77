// AngelaMos | 2026
// service.go

package savedresult

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/carterperez-dev/fortune-api/internal/content"
	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/pdf"
)

const (
	defaultLookupBatch = 500
	minPhoneDigits     = 9
)

var ErrInvalidPhone = errors.New("phone must contain at least 9 digits")

type PDFRenderer interface {
	Render(ctx context.Context, title, body string) (*pdf.Result, error)
}

type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type Service struct {
	repo        Repository
	cipher      Cipher
	renderer    PDFRenderer
	store       core.ObjectStore
	lookupBatch int
}

func NewService(
	repo Repository,
	cipher Cipher,
	renderer PDFRenderer,
	store core.ObjectStore,
	lookupBatch int,
) *Service {
	if lookupBatch <= 0 {
		lookupBatch = defaultLookupBatch
	}
	return &Service{
		repo:        repo,
		cipher:      cipher,
		renderer:    renderer,
		store:       store,
		lookupBatch: lookupBatch,
	}
}

func (s *Service) Save(ctx context.Context, req SaveRequest) (*SavedResult, error) {
	if !ValidPhone(req.Phone) {
		return nil, ErrInvalidPhone
	}

	phone, err := s.cipher.Encrypt(NormalizePhone(req.Phone))
	if err != nil {
		return nil, fmt.Errorf("encrypt phone: %w", err)
	}

	password, err := s.cipher.Encrypt(req.Password)
	if err != nil {
		return nil, fmt.Errorf("encrypt password: %w", err)
	}

	menuItems := req.MenuItems
	if menuItems == nil {
		menuItems = []content.MenuItem{}
	}

	result := &SavedResult{
		ContentID: req.ContentID,
		Title:     req.Title,
		HTML:      req.HTML,
		Model:     req.Model,
		UserName:  req.UserName,
		UserInfo:  core.NewJSONB(req.UserInfo),
		MenuItems: core.NewJSONB(menuItems),
	}

	cred := &UserCredential{
		PhoneEncrypted:    phone,
		PasswordEncrypted: password,
	}

	if err := s.repo.Create(ctx, cred, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (*SavedResult, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]SavedResult, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if result.PDFURL != "" && s.store != nil {
		if key, ok := s.store.KeyFromURL(result.PDFURL); ok {
			if err := s.store.Delete(ctx, key); err != nil {
				slog.Warn("delete result pdf failed", "id", id, "error", err)
			}
		}
	}

	return nil
}

// Lookup decrypts stored credentials batch by batch and returns every
// result saved under a matching phone and password, newest first.
func (s *Service) Lookup(ctx context.Context, req LookupRequest) ([]SavedResult, error) {
	if !ValidPhone(req.Phone) {
		return nil, fmt.Errorf("lookup: %w", core.ErrNotFound)
	}

	phone := []byte(NormalizePhone(req.Phone))
	password := []byte(req.Password)

	var (
		matched []string
		cursor  *CredentialCursor
	)

	for {
		batch, err := s.repo.CredentialBatch(ctx, cursor, s.lookupBatch)
		if err != nil {
			return nil, err
		}

		for _, cred := range batch {
			if s.matches(cred, phone, password) {
				matched = append(matched, cred.ID)
			}
		}

		if len(batch) < s.lookupBatch {
			break
		}

		last := batch[len(batch)-1]
		cursor = &CredentialCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	if len(matched) == 0 {
		return nil, fmt.Errorf("lookup saved results: %w", core.ErrNotFound)
	}

	return s.repo.ListByCredentials(ctx, matched)
}

func (s *Service) matches(cred UserCredential, phone, password []byte) bool {
	storedPhone, err := s.cipher.Decrypt(cred.PhoneEncrypted)
	if err != nil {
		slog.Warn("undecryptable credential", "credential_id", cred.ID, "error", err)
		return false
	}

	storedPassword, err := s.cipher.Decrypt(cred.PasswordEncrypted)
	if err != nil {
		slog.Warn("undecryptable credential", "credential_id", cred.ID, "error", err)
		return false
	}

	phoneOK := subtle.ConstantTimeCompare([]byte(NormalizePhone(storedPhone)), phone)
	passwordOK := subtle.ConstantTimeCompare([]byte(storedPassword), password)
	return phoneOK&passwordOK == 1
}

// ExportPDF renders the result once and reuses the stored URL afterwards.
func (s *Service) ExportPDF(ctx context.Context, id string) (string, error) {
	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if result.PDFURL != "" {
		return result.PDFURL, nil
	}

	if s.renderer == nil || s.store == nil {
		return "", fmt.Errorf("export pdf: renderer or storage is not configured")
	}

	rendered, err := s.renderer.Render(ctx, result.Title, result.HTML)
	if err != nil {
		return "", core.UpstreamError("pdf", err)
	}

	key := fmt.Sprintf("results/%s.pdf", result.ID)
	url, err := s.store.Put(ctx, key, bytes.NewReader(rendered.Data), int64(len(rendered.Data)), "application/pdf")
	if err != nil {
		return "", fmt.Errorf("upload pdf: %w", err)
	}

	if err := s.repo.SetPDFURL(ctx, result.ID, url); err != nil {
		return "", err
	}

	slog.Info("exported result pdf",
		"id", result.ID,
		"mode", rendered.Mode,
		"height_px", rendered.HeightPx,
		"bytes", len(rendered.Data),
	)

	return url, nil
}

// ValidPhone reports whether phone still has enough digits once separators
// are stripped.
func ValidPhone(phone string) bool {
	return len(NormalizePhone(phone)) >= minPhoneDigits
}

// NormalizePhone keeps digits only so "010-1234-5678" and "01012345678"
// match.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}
