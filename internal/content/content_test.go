// AngelaMos | 2026
// content_test.go

package content

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

var columns = []string{
	"id", "content_type", "content_name", "role_prompt", "restrictions",
	"thumbnail_url", "price", "summary", "introduction", "recommendation",
	"menu_font_size", "subtitle_font_size", "body_font_size", "font_family",
	"menu_items", "is_exposed", "is_new", "preview_thumbnails",
	"created_at", "updated_at",
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

type captureArg struct {
	value *string
}

func (c captureArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*c.value = s
	}
	return ok
}

func sampleTree() []MenuItem {
	return []MenuItem{
		{
			ID:        1,
			Value:     "1. 총운",
			Thumbnail: "https://cdn.example.com/thumbnails/content/a.png",
			Subtitles: []Subtitle{
				{
					ID:                 2,
					Subtitle:           "1-1. 타고난 성격",
					InterpretationTool: "일간",
					CharCount:          500,
					DetailMenus: []DetailMenu{
						{ID: 3, DetailMenu: "장점", CharCount: 200},
					},
				},
			},
		},
		{ID: 4, Value: "2. 재물운", Subtitles: []Subtitle{}},
	}
}

func contentRow(id int64, menuJSON string, exposed bool) []driver.Value {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []driver.Value{
		id, TypeSaju, "신년운세", "명리학자", "", "", 9900, "요약", "소개", "추천",
		18, 16, 14, "Pretendard", menuJSON, exposed, true, `[]`, now, now,
	}
}

func TestRepositoryMenuTreeRoundTrip(t *testing.T) {
	repo, mock := newMockRepo(t)

	var stored string
	args := make([]driver.Value, 17)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	args[13] = captureArg{value: &stored}

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO contents")).
		WithArgs(args...).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(7, now, now))

	c := &Content{
		ContentType:       TypeSaju,
		ContentName:       "신년운세",
		MenuItems:         core.NewJSONB(sampleTree()),
		PreviewThumbnails: core.NewJSONB([]string{}),
	}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int64(7), c.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contents")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(contentRow(7, stored, true)...))

	loaded, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, sampleTree(), loaded.MenuItems.V)
	assert.Equal(t, []string{}, loaded.PreviewThumbnails.V)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListFilters(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM contents WHERE content_name ILIKE $1 AND content_type = $2")).
		WithArgs("%50\\%%", TypeGunghap).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $3 OFFSET $4")).
		WithArgs("%50\\%%", TypeGunghap, 10, 10).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(contentRow(3, `[]`, false)...))

	contents, total, err := repo.List(context.Background(), ListContentsParams{
		PageParams:  core.PageParams{Page: 2, PageSize: 10},
		Search:      "50%",
		ContentType: TypeGunghap,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, contents, 1)
	assert.Equal(t, int64(3), contents[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryNames(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, content_name FROM contents WHERE id IN ($1, $2)")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content_name"}).
			AddRow(1, "신년운세").AddRow(2, "궁합"))

	names, err := repo.Names(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "신년운세", 2: "궁합"}, names)
}

type fakeStore struct {
	puts    map[string][]byte
	deleted []string
	failDel bool
}

func (f *fakeStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[key] = b
	return "https://cdn.example.com/thumbnails/" + key, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	if f.failDel {
		return errors.New("storage down")
	}
	return nil
}

func (f *fakeStore) KeyFromURL(url string) (string, bool) {
	const prefix = "https://cdn.example.com/thumbnails/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestServiceListExposedCachesAndInvalidates(t *testing.T) {
	repo, mock := newMockRepo(t)
	mr, client := newRedis(t)
	svc := NewService(repo, &fakeStore{}, client, time.Minute)

	tree, err := json.Marshal(sampleTree())
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_exposed = TRUE")).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(contentRow(1, string(tree), true)...))

	first, err := svc.ListExposed(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, sampleTree(), first[0].MenuItems)
	assert.True(t, mr.Exists(exposedCacheKey))

	second, err := svc.ListExposed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first[0].ContentName, second[0].ContentName)
	require.NoError(t, mock.ExpectationsWereMet())

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO contents")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(2, now, now))

	_, err = svc.Create(context.Background(), SaveContentRequest{
		ContentType: TypeFree,
		ContentName: "무료 운세",
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(exposedCacheKey))
}

func TestServiceDeleteRemovesThumbnailsBestEffort(t *testing.T) {
	repo, mock := newMockRepo(t)
	store := &fakeStore{failDel: true}
	svc := NewService(repo, store, nil, 0)

	tree, err := json.Marshal(sampleTree())
	require.NoError(t, err)

	row := contentRow(5, string(tree), true)
	row[5] = "https://cdn.example.com/thumbnails/content/main.png"
	row[17] = `["https://other.example.com/x.png"]`

	mock.ExpectQuery(regexp.QuoteMeta("FROM contents")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row...))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contents")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Delete(context.Background(), 5))
	assert.Equal(t, []string{"content/main.png", "content/a.png"}, store.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceDeleteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := NewService(repo, &fakeStore{}, nil, 0)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contents")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(columns))

	err := svc.Delete(context.Background(), 9)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestHandlerUploadThumbnail(t *testing.T) {
	repo, _ := newMockRepo(t)
	store := &fakeStore{}
	h := NewHandler(NewService(repo, store, nil, 0), 1<<20)

	body, ct := multipartBody(t, "Cover.PNG", "image/png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/contents/thumbnail", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.UploadThumbnail(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data UploadResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Data.URL, "https://cdn.example.com/thumbnails/content/"))
	assert.True(t, strings.HasSuffix(resp.Data.URL, ".png"))
	require.Len(t, store.puts, 1)
}

func TestHandlerUploadRejectsNonImage(t *testing.T) {
	repo, _ := newMockRepo(t)
	h := NewHandler(NewService(repo, &fakeStore{}, nil, 0), 1<<20)

	body, ct := multipartBody(t, "notes.txt", "text/plain", []byte("hi"))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/contents/thumbnail", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.UploadThumbnail(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerParseBulkMenu(t *testing.T) {
	repo, _ := newMockRepo(t)
	h := NewHandler(NewService(repo, nil, nil, 0), 1<<20)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/contents/bulk-menu",
		strings.NewReader(`{"text":"1. 총운\n1-1. 성격\n[글자수] 300"}`))

	h.ParseBulkMenu(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subtitle":"1-1. 성격"`)
	assert.Contains(t, rec.Body.String(), `"char_count":300`)
}
