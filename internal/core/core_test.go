// AngelaMos | 2026
// core_test.go

package core

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/fortune-api/internal/config"
)

func newKey(t *testing.T) string {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestFieldCipherRoundTrip(t *testing.T) {
	c, err := NewFieldCipher(newKey(t))
	require.NoError(t, err)

	a, err := c.Encrypt("01012345678")
	require.NoError(t, err)
	b, err := c.Encrypt("01012345678")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce must differ per call")

	plain, err := c.Decrypt(a)
	require.NoError(t, err)
	assert.Equal(t, "01012345678", plain)
}

func TestFieldCipherRejectsForeignCiphertext(t *testing.T) {
	c1, err := NewFieldCipher(newKey(t))
	require.NoError(t, err)
	c2, err := NewFieldCipher(newKey(t))
	require.NoError(t, err)

	sealed, err := c1.Encrypt("secret")
	require.NoError(t, err)

	_, err = c2.Decrypt(sealed)
	assert.Error(t, err)

	_, err = c1.Decrypt("AAAA")
	assert.Error(t, err)

	_, err = c1.Decrypt("not base64!")
	assert.Error(t, err)
}

func TestNewFieldCipherKeyLength(t *testing.T) {
	_, err := NewFieldCipher(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)

	_, err = NewFieldCipher("%%%")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	ok, err := VerifyPassword("correct-horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, upgraded, err := CheckPassword("correct-horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, upgraded)

	ok, _, err = CheckPassword("anything", "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("x", "$bcrypt$nope")
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func TestCheckPasswordUpgradesWeakHash(t *testing.T) {
	weak := DefaultPasswordParams
	weak.Memory = 8 * 1024

	hash, err := weak.Hash("correct-horse")
	require.NoError(t, err)

	ok, upgraded, err := CheckPassword("correct-horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotEmpty(t, upgraded)
	assert.Contains(t, upgraded, "m=65536,")

	ok, upgraded, err = CheckPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, upgraded)
}

func TestPageParamsNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         PageParams
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"defaults", PageParams{}, 1, DefaultPageSize, 0},
		{"capped", PageParams{Page: 3, PageSize: 500}, 3, MaxPageSize, 200},
		{"regular", PageParams{Page: 2, PageSize: 10}, 2, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize()
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantSize, p.PageSize)
			assert.Equal(t, tt.wantOffset, p.Offset())
		})
	}
}

func TestPageFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=4&page_size=abc", nil)
	p := PageFromRequest(r)

	assert.Equal(t, 4, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
}

func TestJSONBScan(t *testing.T) {
	var j JSONB[[]string]
	require.NoError(t, j.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, []string{"a", "b"}, j.V)

	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j.V)

	assert.Error(t, j.Scan(42))

	v, err := NewJSONB(map[string]int{"x": 1}).Value()
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, v)
}

func TestJSONError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "app error",
			err:      fmt.Errorf("wrapped: %w", NotFoundError("content")),
			wantCode: http.StatusNotFound,
			wantBody: "NOT_FOUND",
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			JSONError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestPaginatedMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, []int{1, 2}, 2, 10, 21)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Meta)
	assert.Equal(t, 3, body.Meta.TotalPages)
	assert.True(t, body.Success)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)

	buf.Reset()
	NewLogger(config.LogConfig{Level: "nonsense"}, &buf).Debug("quiet")
	assert.Empty(t, buf.String())
}
