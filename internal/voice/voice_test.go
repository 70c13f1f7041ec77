// AngelaMos | 2026
// voice_test.go

package voice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/gemini"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

const testSessionID = "6f1c8a52-3d0e-4c1b-9a77-2b5e4f9d0c11"

type memRepo struct {
	mu       sync.Mutex
	config   *Config
	sessions map[string]*Session
}

func newMemRepo() *memRepo {
	return &memRepo{sessions: map[string]*Session{}}
}

func (m *memRepo) GetConfig(context.Context) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return nil, core.ErrNotFound
	}
	c := *m.config
	return &c, nil
}

func (m *memRepo) UpsertConfig(_ context.Context, c *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.config = &cp
	return nil
}

func (m *memRepo) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = testSessionID
	s.CreatedAt = time.Now()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memRepo) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) AppendTranscript(_ context.Context, id string, entries []TranscriptEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return core.ErrNotFound
	}
	if !s.Active() {
		return ErrSessionEnded
	}
	s.Transcript.V = append(s.Transcript.V, entries...)
	return nil
}

func (m *memRepo) EndSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	now := time.Now()
	s.Status = StatusEnded
	s.EndedAt = &now
	cp := *s
	return &cp, nil
}

func (m *memRepo) ListSessions(context.Context, ListSessionsParams) ([]Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *memRepo) transcript(id string) []TranscriptEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TranscriptEntry(nil), m.sessions[id].Transcript.V...)
}

type fakeLive struct {
	mu     sync.Mutex
	events chan *gemini.LiveEvent
	done   chan struct{}
	once   sync.Once
	audio  [][]byte
}

func newFakeLive(events ...*gemini.LiveEvent) *fakeLive {
	ch := make(chan *gemini.LiveEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	return &fakeLive{events: ch, done: make(chan struct{})}
}

func (f *fakeLive) SendAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, append([]byte(nil), pcm...))
	return nil
}

func (f *fakeLive) Receive() (*gemini.LiveEvent, error) {
	select {
	case ev := <-f.events:
		return ev, nil
	case <-f.done:
		return nil, errors.New("live session closed")
	}
}

func (f *fakeLive) Close() error {
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *fakeLive) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audio
}

type fakeConnector struct {
	mu   sync.Mutex
	live *fakeLive
	err  error
	opts gemini.LiveOptions
}

func (c *fakeConnector) Connect(_ context.Context, opts gemini.LiveOptions) (gemini.LiveSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts = opts
	if c.err != nil {
		return nil, c.err
	}
	return c.live, nil
}

func activeSession(repo *memRepo) {
	repo.sessions[testSessionID] = &Session{
		ID:         testSessionID,
		Mode:       DefaultMode,
		Profile:    core.NewJSONB(json.RawMessage(`{"name":"홍길동"}`)),
		ManseRyeok: core.NewJSONB(json.RawMessage(`null`)),
		Transcript: core.NewJSONB([]TranscriptEntry{}),
		Status:     StatusActive,
	}
}

func TestServiceConfigDefaultsWhenMissing(t *testing.T) {
	svc := NewService(newMemRepo(), "gemini-live-test")

	c, err := svc.Config(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Enabled)
	assert.Equal(t, DefaultMode, c.DefaultMode)
	assert.Equal(t, "gemini-live-test", c.Model)
	assert.Contains(t, c.Modes.V, DefaultMode)
}

func TestServiceUpdateConfigRejectsMissingDefaultMode(t *testing.T) {
	svc := NewService(newMemRepo(), "m")
	mode := "tarot"

	_, err := svc.UpdateConfig(context.Background(), UpdateConfigRequest{DefaultMode: &mode})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestServiceUpdateConfigMerges(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, "m")
	enabled := false

	c, err := svc.UpdateConfig(context.Background(), UpdateConfigRequest{Enabled: &enabled})
	require.NoError(t, err)
	assert.False(t, c.Enabled)
	assert.Equal(t, DefaultMode, c.DefaultMode)

	stored, err := repo.GetConfig(context.Background())
	require.NoError(t, err)
	assert.False(t, stored.Enabled)
}

func TestServiceCreateSession(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, "m")

	s, err := svc.CreateSession(context.Background(), CreateSessionRequest{Mode: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMode, s.Mode)
	assert.Equal(t, StatusActive, s.Status)
	assert.Empty(t, s.Transcript.V)
	assert.Equal(t, "null", string(s.Profile.V))
}

func TestServiceCreateSessionDisabled(t *testing.T) {
	repo := newMemRepo()
	c := DefaultConfig()
	c.Enabled = false
	repo.config = c

	_, err := NewService(repo, "m").CreateSession(context.Background(), CreateSessionRequest{})
	assert.ErrorIs(t, err, ErrVoiceDisabled)
}

func TestServiceAppendTranscriptSkipsBlankEntries(t *testing.T) {
	repo := newMemRepo()
	activeSession(repo)
	svc := NewService(repo, "m")

	err := svc.AppendTranscript(context.Background(), testSessionID, []TranscriptInput{
		{Role: RoleUser, Text: "  "},
		{Role: RoleModel, Text: " 좋은 하루예요 "},
	})
	require.NoError(t, err)

	entries := repo.transcript(testSessionID)
	require.Len(t, entries, 1)
	assert.Equal(t, RoleModel, entries[0].Role)
	assert.Equal(t, "좋은 하루예요", entries[0].Text)
	assert.False(t, entries[0].At.IsZero())
}

func TestBuildSystemInstruction(t *testing.T) {
	preset := DefaultConfig().Modes.V[DefaultMode]
	s := &Session{
		Profile:    core.NewJSONB(json.RawMessage(`{"name":"홍길동"}`)),
		ManseRyeok: core.NewJSONB(json.RawMessage(`null`)),
	}

	out := BuildSystemInstruction(preset, s)

	assert.True(t, strings.HasPrefix(out, preset.SystemPrompt))
	assert.Contains(t, out, "[의뢰인 정보]")
	assert.Contains(t, out, `"name": "홍길동"`)
	assert.NotContains(t, out, "[만세력]")
	assert.Contains(t, out, preset.Greeting)
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestRepositoryAppendTranscript(t *testing.T) {
	repo, mock := newMockRepo(t)
	update := regexp.QuoteMeta("UPDATE voice_mvp_sessions")

	mock.ExpectExec(update).
		WithArgs(testSessionID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).
		WithArgs(testSessionID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM voice_mvp_sessions")).
		WithArgs(testSessionID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusEnded))
	mock.ExpectExec(update).
		WithArgs(testSessionID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM voice_mvp_sessions")).
		WithArgs(testSessionID).
		WillReturnError(sql.ErrNoRows)

	entries := []TranscriptEntry{{Role: RoleUser, Text: "안녕", At: time.Now()}}

	require.NoError(t, repo.AppendTranscript(context.Background(), testSessionID, entries))
	assert.ErrorIs(t, repo.AppendTranscript(context.Background(), testSessionID, entries), ErrSessionEnded)
	assert.ErrorIs(t, repo.AppendTranscript(context.Background(), testSessionID, entries), core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetConfigNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM voice_mvp_config")).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetConfig(context.Background())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func newRouter(svc *Service, connector LiveConnector) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewHandler(svc, NewRelay(svc, connector, nil, nil)).RegisterRoutes(r)
	})
	return r
}

func readEvent(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return kind, data
}

func TestRelayBridgesLiveSession(t *testing.T) {
	repo := newMemRepo()
	activeSession(repo)
	svc := NewService(repo, "gemini-live-test")

	live := newFakeLive(
		&gemini.LiveEvent{InputText: "안녕", InputFinished: true},
		&gemini.LiveEvent{Audio: [][]byte{{1, 2, 3}}},
		&gemini.LiveEvent{OutputText: "반갑"},
		&gemini.LiveEvent{OutputText: "습니다", OutputFinished: true},
		&gemini.LiveEvent{TurnComplete: true},
	)
	connector := &fakeConnector{live: live}

	srv := httptest.NewServer(newRouter(svc, connector))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/voice-mvp/sessions/" + testSessionID + "/live"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{9, 9}))

	var types []string
	var audio [][]byte
	for {
		kind, data := readEvent(t, conn)
		if kind == websocket.BinaryMessage {
			audio = append(audio, data)
			continue
		}

		var ev ServerEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		types = append(types, ev.Type)
		if ev.Type == EventReady {
			assert.Equal(t, DefaultMode, ev.Mode)
			assert.NotEmpty(t, ev.Greeting)
		}
		if ev.Type == EventTurnComplete {
			break
		}
	}

	assert.Equal(t, []string{
		EventReady, EventTranscript, EventTranscript, EventTranscript, EventTurnComplete,
	}, types)
	assert.Equal(t, [][]byte{{1, 2, 3}}, audio)
	connector.mu.Lock()
	opts := connector.opts
	connector.mu.Unlock()
	assert.Equal(t, "Kore", opts.VoiceName)
	assert.Contains(t, opts.SystemInstruction, "홍길동")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"end"}`)))

	_, data := readEvent(t, conn)
	var ended ServerEvent
	require.NoError(t, json.Unmarshal(data, &ended))
	assert.Equal(t, EventEnded, ended.Type)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	entries := repo.transcript(testSessionID)
	require.Len(t, entries, 2)
	assert.Equal(t, TranscriptEntry{Role: RoleUser, Text: "안녕", At: entries[0].At}, entries[0])
	assert.Equal(t, "반갑습니다", entries[1].Text)

	s, err := repo.GetSession(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, s.Status)
	assert.Equal(t, [][]byte{{9, 9}}, live.received())
}

func TestRelayConnectFailureSendsError(t *testing.T) {
	repo := newMemRepo()
	activeSession(repo)
	svc := NewService(repo, "m")

	srv := httptest.NewServer(newRouter(svc, &fakeConnector{err: errors.New("dial failed")}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/voice-mvp/sessions/" + testSessionID + "/live"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	_, data := readEvent(t, conn)
	var ev ServerEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, EventError, ev.Type)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr))
}

func TestLiveRejectsEndedSession(t *testing.T) {
	repo := newMemRepo()
	activeSession(repo)
	repo.sessions[testSessionID].Status = StatusEnded

	svc := NewService(repo, "m")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/voice-mvp/sessions/"+testSessionID+"/live", nil)

	newRouter(svc, &fakeConnector{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_ENDED")
}

func TestHandlerPublicConfigHidesSystemPrompt(t *testing.T) {
	svc := NewService(newMemRepo(), "m")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/voice-mvp/config", nil)

	newRouter(svc, &fakeConnector{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "system_prompt")
	assert.Contains(t, rec.Body.String(), `"greeting"`)
}

func TestHandlerAppendTranscriptValidation(t *testing.T) {
	repo := newMemRepo()
	activeSession(repo)
	svc := NewService(repo, "m")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/voice-mvp/sessions/"+testSessionID+"/transcript",
		strings.NewReader(`{"entries":[{"role":"narrator","text":"x"}]}`))

	newRouter(svc, &fakeConnector{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerInvalidSessionID(t *testing.T) {
	svc := NewService(newMemRepo(), "m")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/voice-mvp/sessions/not-a-uuid", nil)

	newRouter(svc, &fakeConnector{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerAppendTranscriptToEndedSession(t *testing.T) {
	repo := newMemRepo()
	activeSession(repo)
	repo.sessions[testSessionID].Status = StatusEnded
	svc := NewService(repo, "m")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/voice-mvp/sessions/"+testSessionID+"/transcript",
		strings.NewReader(`{"entries":[{"role":"user","text":"안녕하세요"}]}`))

	newRouter(svc, &fakeConnector{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_ENDED")
}

