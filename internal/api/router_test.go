package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/worker"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls []string
	reply []string
}

func (f *fakeExecutor) Execute(_ context.Context, requesterID int64, text string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	return f.reply
}

// inlineJobs runs each job before Submit returns.
type inlineJobs struct {
	err error
}

func (s inlineJobs) Submit(_ string, job worker.Job) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "job-1", job(context.Background())
}

type sentReply struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentReply
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentReply{chatID, text})
	return nil
}

func newTestRouter(exec Executor, jobs Submitter, sender ReplySender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewHandler("tok123", exec, jobs, sender, WithGatherer(prometheus.NewRegistry())).Router()
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const update = `{"update_id":7,"message":{"from":{"id":42},"chat":{"id":-100},"text":"/get a@x.com"}}`

func TestWebhookAcceptsAndReplies(t *testing.T) {
	exec := &fakeExecutor{reply: []string{"part one", "part two"}}
	sender := &fakeSender{}
	r := newTestRouter(exec, inlineJobs{}, sender)

	w := post(r, "/webhook/tok123", update)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, []string{"/get a@x.com"}, exec.calls)
	assert.Equal(t, []sentReply{{-100, "part one"}, {-100, "part two"}}, sender.sent)
}

func TestWebhookRejectsWrongToken(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRouter(exec, inlineJobs{}, &fakeSender{})

	w := post(r, "/webhook/nope", update)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, exec.calls)
}

func TestWebhookEmptyTokenNeverMatches(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exec := &fakeExecutor{}
	r := NewHandler("", exec, inlineJobs{}, &fakeSender{}).Router()

	w := post(r, "/webhook/x", update)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookBadBody(t *testing.T) {
	r := newTestRouter(&fakeExecutor{}, inlineJobs{}, &fakeSender{})
	assert.Equal(t, http.StatusBadRequest, post(r, "/webhook/tok123", "{not json").Code)
}

func TestWebhookIgnoresNonMessageUpdates(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRouter(exec, inlineJobs{}, &fakeSender{})

	w := post(r, "/webhook/tok123", `{"update_id":8,"edited_message":{"text":"/get"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
	assert.Empty(t, exec.calls)
}

func TestWebhookBusy(t *testing.T) {
	r := newTestRouter(&fakeExecutor{}, inlineJobs{err: worker.ErrFull}, &fakeSender{})
	assert.Equal(t, http.StatusServiceUnavailable, post(r, "/webhook/tok123", update).Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	r := newTestRouter(&fakeExecutor{}, inlineJobs{}, &fakeSender{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookWithPool(t *testing.T) {
	exec := &fakeExecutor{reply: []string{"ok"}}
	sender := &fakeSender{}
	pool := worker.New(2)
	r := newTestRouter(exec, pool, sender)

	require.Equal(t, http.StatusOK, post(r, "/webhook/tok123", update).Code)
	require.NoError(t, pool.Shutdown(context.Background()))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, []sentReply{{-100, "ok"}}, sender.sent)
}
