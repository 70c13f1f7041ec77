// AngelaMos | 2026
// service_test.go

package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/gemini"
	"github.com/carterperez-dev/fortune-api/internal/prompt"
)

type fakeGenerator struct {
	results []*gemini.Result
	errs    []error
	calls   int
	last    gemini.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req gemini.Request) (*gemini.Result, error) {
	i := f.calls
	f.calls++
	f.last = req

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.results[i], nil
}

func instantRetry() gemini.RetryPolicy {
	p := gemini.NewRetryPolicy(3, time.Second)
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestAnswerCleansAndTruncates(t *testing.T) {
	gen := &fakeGenerator{results: []*gemini.Result{
		{Text: "```html\n<p>**올해**는 이직운이 <b>좋습니다</b>.</p><p>다만 서두르지 마세요.</p>\n```", FinishReason: "STOP"},
	}}
	svc := NewService(gen, instantRetry(), 13)

	resp, err := svc.Answer(context.Background(), prompt.QuestionRequest{
		Question: "이직해도 될까요?",
		Model:    "gemini-2.5-pro",
	})

	require.NoError(t, err)
	assert.Equal(t, "올해는 이직운이 좋습니다", resp.Answer)
	assert.Equal(t, "gemini-2.5-pro", gen.last.Model)
	assert.Contains(t, gen.last.Prompt, "13자 이내")
}

func TestAnswerRetriesServerErrors(t *testing.T) {
	gen := &fakeGenerator{
		errs:    []error{errors.New("Error 500"), nil},
		results: []*gemini.Result{nil, {Text: "<p>괜찮습니다.</p>"}},
	}
	svc := NewService(gen, instantRetry(), 1000)

	resp, err := svc.Answer(context.Background(), prompt.QuestionRequest{Question: "q"})

	require.NoError(t, err)
	assert.Equal(t, "괜찮습니다.", resp.Answer)
	assert.Equal(t, 2, gen.calls)
}

func TestAnswerUpstreamFailure(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("Error 403 forbidden")}}
	svc := NewService(gen, instantRetry(), 1000)

	_, err := svc.Answer(context.Background(), prompt.QuestionRequest{Question: "q"})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstream)
	assert.Equal(t, 1, gen.calls)
}

func TestAnswerEmptyOutput(t *testing.T) {
	gen := &fakeGenerator{results: []*gemini.Result{{Text: "  ", FinishReason: "SAFETY"}}}
	svc := NewService(gen, instantRetry(), 1000)

	_, err := svc.Answer(context.Background(), prompt.QuestionRequest{Question: "q"})

	assert.ErrorIs(t, err, core.ErrUpstream)
}

func TestHandlerAsk(t *testing.T) {
	gen := &fakeGenerator{results: []*gemini.Result{{Text: "<p>네</p>"}}}
	h := NewHandler(NewService(gen, instantRetry(), 1000))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/question",
		strings.NewReader(`{"question":"궁합이 좋나요?","subtitle":"1-1. 궁합"}`))

	h.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool           `json:"success"`
		Data    AnswerResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "네", body.Data.Answer)
}

func TestHandlerAskValidation(t *testing.T) {
	h := NewHandler(NewService(&fakeGenerator{}, instantRetry(), 1000))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/question", strings.NewReader(`{"question":""}`))

	h.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "question is required")
}

func TestHandlerAskUpstreamError(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("Error 400")}}
	h := NewHandler(NewService(gen, instantRetry(), 1000))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/question", strings.NewReader(`{"question":"q"}`))

	h.Ask(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "UPSTREAM_ERROR")
}
