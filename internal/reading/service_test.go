// AngelaMos | 2026
// service_test.go

package reading

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/carterperez-dev/fortune-api/internal/gemini"
	"github.com/carterperez-dev/fortune-api/internal/markup"
	"github.com/carterperez-dev/fortune-api/internal/prompt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

type step struct {
	chunk gemini.Chunk
	err   error
	block bool
}

type fakeStream struct {
	ctx    context.Context
	steps  []step
	closed bool
}

func (s *fakeStream) Next() (gemini.Chunk, error) {
	if len(s.steps) == 0 {
		return gemini.Chunk{}, io.EOF
	}

	st := s.steps[0]
	s.steps = s.steps[1:]

	if st.block {
		<-s.ctx.Done()
		return gemini.Chunk{}, s.ctx.Err()
	}
	return st.chunk, st.err
}

func (s *fakeStream) Close() { s.closed = true }

type fakeStreamer struct {
	mu       sync.Mutex
	openErrs []error
	steps    []step
	calls    int
	prompts  []string
	stream   *fakeStream
}

func (f *fakeStreamer) Open(ctx context.Context, req gemini.Request) (gemini.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.prompts = append(f.prompts, req.Prompt)

	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	f.stream = &fakeStream{ctx: ctx, steps: f.steps}
	return f.stream, nil
}

func noSleepPolicy(waits *[]time.Duration) gemini.RetryPolicy {
	p := gemini.NewRetryPolicy(3, 2*time.Second)
	p.Sleep = func(_ context.Context, d time.Duration) error {
		if waits != nil {
			*waits = append(*waits, d)
		}
		return nil
	}
	return p
}

func baseRequest() prompt.ReadingRequest {
	return prompt.ReadingRequest{
		RolePrompt: "명리학자",
		MenuSubtitles: []prompt.SubtitleSpec{
			{Subtitle: "1-1. 성격"},
			{Subtitle: "1-2. 재능"},
		},
	}
}

func collect(t *testing.T, svc *Service, req prompt.ReadingRequest) []Event {
	t.Helper()

	var events []Event
	err := svc.Stream(context.Background(), req, func(e Event) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)
	return events
}

func section(key, body string) string {
	return `<div class="subtitle-section" data-subtitle="` + key + `">` +
		`<h3 class="subtitle-title">` + key + `. 제목</h3>` +
		`<div class="subtitle-content">` + body + `</div></div>`
}

func TestStreamAccumulatesChunks(t *testing.T) {
	raw := []string{"```html\n", section("1-1", "첫째**강조**"), "\n", section("1-2", "둘째"), "\n```"}

	steps := make([]step, 0, len(raw))
	for i, text := range raw {
		c := gemini.Chunk{Text: text}
		if i == len(raw)-1 {
			c.FinishReason = "STOP"
			c.Usage = &gemini.Usage{PromptTokenCount: 10, CandidatesTokenCount: 20, TotalTokenCount: 30}
		}
		steps = append(steps, step{chunk: c})
	}

	streamer := &fakeStreamer{steps: steps}
	svc := NewService(streamer, Options{Retry: noSleepPolicy(nil)})

	events := collect(t, svc, baseRequest())
	require.Len(t, events, len(raw)+1)

	var joined strings.Builder
	total := 0
	for _, e := range events[:len(raw)] {
		chunk, ok := e.(ChunkEvent)
		require.True(t, ok)
		joined.WriteString(chunk.Text)
		total += len([]rune(chunk.Text))
		assert.Equal(t, total, chunk.AccumulatedLength)
	}

	done, ok := events[len(raw)].(DoneEvent)
	require.True(t, ok)
	assert.Equal(t, markup.Clean(joined.String()), done.HTML)
	assert.False(t, done.IsTruncated)
	assert.Equal(t, "STOP", done.FinishReason)
	assert.Equal(t, int32(30), done.Usage.TotalTokenCount)
	assert.Equal(t, []string{"1-1", "1-2"}, done.CompletedSubtitles)
	assert.NotContains(t, done.HTML, "**")
	assert.NotContains(t, done.HTML, "```")
	assert.True(t, streamer.stream.closed)
}

func TestStreamMaxTokensIsTruncated(t *testing.T) {
	streamer := &fakeStreamer{steps: []step{
		{chunk: gemini.Chunk{Text: section("1-1", "본문"), FinishReason: "MAX_TOKENS"}},
	}}
	svc := NewService(streamer, Options{Retry: noSleepPolicy(nil)})

	events := collect(t, svc, baseRequest())

	done := events[len(events)-1].(DoneEvent)
	assert.True(t, done.IsTruncated)
	assert.Equal(t, "MAX_TOKENS", done.FinishReason)
	assert.Equal(t, []string{"1-1"}, done.CompletedSubtitles)
}

func TestStreamRetriesOpenOn500(t *testing.T) {
	var waits []time.Duration
	streamer := &fakeStreamer{
		openErrs: []error{errors.New("Error 500, Message: internal"), errors.New("Error 500")},
		steps:    []step{{chunk: gemini.Chunk{Text: "<p>ok</p>"}}},
	}
	svc := NewService(streamer, Options{Retry: noSleepPolicy(&waits)})

	events := collect(t, svc, baseRequest())

	assert.Equal(t, 3, streamer.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)
	assert.Equal(t, "<p>ok</p>", events[len(events)-1].(DoneEvent).HTML)
}

func TestStreamOpenFailureEmitsError(t *testing.T) {
	streamer := &fakeStreamer{
		openErrs: []error{errors.New("Error 400, invalid argument")},
	}
	svc := NewService(streamer, Options{Retry: noSleepPolicy(nil)})

	events := collect(t, svc, baseRequest())

	require.Len(t, events, 1)
	errEvent, ok := events[0].(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, EventError, errEvent.Type)
	assert.NotEmpty(t, errEvent.Error)
	assert.Equal(t, 1, streamer.calls)
}

func TestStreamReadErrorIsNotRetried(t *testing.T) {
	streamer := &fakeStreamer{steps: []step{
		{chunk: gemini.Chunk{Text: "<p>부분</p>"}},
		{err: errors.New("Error 500 mid-stream")},
	}}
	svc := NewService(streamer, Options{Retry: noSleepPolicy(nil)})

	events := collect(t, svc, baseRequest())

	require.Len(t, events, 2)
	assert.IsType(t, ChunkEvent{}, events[0])
	assert.IsType(t, ErrorEvent{}, events[1])
	assert.Equal(t, 1, streamer.calls)
}

func TestStreamTimeoutEmitsTruncatedDone(t *testing.T) {
	streamer := &fakeStreamer{steps: []step{
		{chunk: gemini.Chunk{Text: section("1-1", "본문")}},
		{block: true},
	}}
	svc := NewService(streamer, Options{
		GenerationTimeout: 50 * time.Millisecond,
		Retry:             noSleepPolicy(nil),
	})

	events := collect(t, svc, baseRequest())

	done, ok := events[len(events)-1].(DoneEvent)
	require.True(t, ok)
	assert.True(t, done.IsTruncated)
	assert.Equal(t, gemini.FinishReasonTimeout, done.FinishReason)
	assert.Equal(t, []string{"1-1"}, done.CompletedSubtitles)
}

func TestStreamSecondRequestDropsCompletedSections(t *testing.T) {
	streamer := &fakeStreamer{steps: []step{
		{chunk: gemini.Chunk{Text: section("1-1", "중복") + section("1-2", "새 내용"), FinishReason: "STOP"}},
	}}
	svc := NewService(streamer, Options{Retry: noSleepPolicy(nil)})

	req := baseRequest()
	req.IsSecondRequest = true
	req.CompletedSubtitles = []string{"1-1"}

	events := collect(t, svc, req)

	done := events[len(events)-1].(DoneEvent)
	assert.NotContains(t, done.HTML, "중복")
	assert.Contains(t, done.HTML, "새 내용")
	assert.Equal(t, []string{"1-2"}, done.CompletedSubtitles)
	assert.Contains(t, streamer.prompts[0], "이미 작성된 소제목: 1-1")
}

func TestHandlerStreamsServerSentEvents(t *testing.T) {
	streamer := &fakeStreamer{steps: []step{
		{chunk: gemini.Chunk{Text: "<p>안녕</p>"}},
		{chunk: gemini.Chunk{Text: "<p>하세요</p>", FinishReason: "STOP"}},
	}}
	h := NewHandler(NewService(streamer, Options{Retry: noSleepPolicy(nil)}))

	r := chi.NewRouter()
	h.RegisterRoutes(r, "/api/jeminai", func(next http.Handler) http.Handler { return next })

	srv := httptest.NewServer(r)
	defer srv.Close()

	body, err := json.Marshal(baseRequest())
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/jeminai", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	var types []string
	var last map[string]any
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		types = append(types, ev["type"].(string))
		last = ev
	}
	require.NoError(t, scanner.Err())

	assert.Equal(t, []string{"chunk", "chunk", "done"}, types)
	assert.Equal(t, "<p>안녕</p><p>하세요</p>", last["html"])
	assert.Equal(t, false, last["isTruncated"])
}

func TestHandlerRejectsInvalidBody(t *testing.T) {
	h := NewHandler(NewService(&fakeStreamer{}, Options{Retry: noSleepPolicy(nil)}))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{"},
		{"no subtitles", `{"role_prompt":"x","menu_subtitles":[]}`},
		{"empty subtitle", `{"menu_subtitles":[{"subtitle":""}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/jeminai", strings.NewReader(tt.body))

			h.Stream(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}
