package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/silat-watch/internal/logger"
	"github.com/pfrederiksen/silat-watch/internal/subscriber"
	"github.com/pfrederiksen/silat-watch/internal/token"
)

type testEnv struct {
	server  *httptest.Server
	client  *http.Client
	store   *subscriber.Store
	signer  *token.Signer
	now     time.Time
	metrics *logger.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := subscriber.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{
		store:   store,
		now:     time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		metrics: logger.NewMetrics(),
	}
	env.signer = token.NewSigner("web-test-secret", token.UnsubscribeSalt, token.WithClock(func() time.Time { return env.now }))

	env.server = httptest.NewServer(New(store, env.signer, env.metrics).Handler())
	t.Cleanup(env.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{Jar: jar}

	return env
}

func (e *testEnv) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (e *testEnv) subscribe(t *testing.T, email string) string {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+"/", url.Values{"email": {email}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/", resp.Request.URL.Path, "subscribe should redirect to the form")
	return string(body)
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<form method="post" action="/">`)
	assert.NotContains(t, body, "alert")

	status, _ = env.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSubscribe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	body := env.subscribe(t, "Budi@Example.com")
	assert.Contains(t, body, "alert-success")
	assert.Contains(t, body, MsgSubscribed)

	emails, err := env.store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"budi@example.com"}, emails)

	body = env.subscribe(t, "budi@example.com")
	assert.Contains(t, body, "alert-warning")
	assert.Contains(t, body, MsgAlreadySubscribed)

	body = env.subscribe(t, "not an email")
	assert.Contains(t, body, "alert-danger")
	assert.Contains(t, body, MsgInvalidEmail)

	// the flash is shown once
	_, body = env.get(t, "/")
	assert.NotContains(t, body, "alert")

	n, err := env.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), env.metrics.Snapshot().Counters["web.subscribed"])
}

func TestSubscribe_EmptyEmail(t *testing.T) {
	env := newTestEnv(t)

	body := env.subscribe(t, "")
	assert.NotContains(t, body, "alert")

	n, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnsubscribe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Add(ctx, "budi@example.com")
	require.NoError(t, err)
	tok := env.signer.Issue("budi@example.com")

	status, body := env.get(t, "/unsubscribe/"+tok)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Berhasil berhenti berlangganan")
	assert.Contains(t, body, "budi@example.com")

	n, err := env.store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// the link keeps working until it expires
	status, body = env.get(t, "/unsubscribe/"+tok)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Berhasil berhenti berlangganan")
}

func TestUnsubscribe_BadTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Add(ctx, "budi@example.com")
	require.NoError(t, err)

	expired := env.signer.Issue("budi@example.com")
	env.now = env.now.Add(token.TTL + time.Minute)

	other := token.NewSigner("another-secret", token.UnsubscribeSalt)

	tests := []struct {
		name string
		tok  string
		want string
	}{
		{name: "expired", tok: expired, want: MsgTokenExpired},
		{name: "garbage", tok: "not-a-token", want: MsgTokenInvalid},
		{name: "wrong secret", tok: other.Issue("budi@example.com"), want: MsgTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.get(t, "/unsubscribe/"+tt.tok)
			assert.Equal(t, http.StatusOK, status)
			assert.Contains(t, body, "Gagal berhenti berlangganan")
			assert.Contains(t, body, tt.want)

			form := url.Values{"List-Unsubscribe": {"One-Click"}}
			resp, err := env.client.PostForm(env.server.URL+"/unsubscribe/"+tt.tok, form)
			require.NoError(t, err)
			oneClick, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(oneClick), tt.want)

			emails, err := env.store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"budi@example.com"}, emails, "rejected token must keep the subscriber")
		})
	}
}

func TestOneClickUnsubscribe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Add(ctx, "sari@example.com")
	require.NoError(t, err)

	form := url.Values{"List-Unsubscribe": {"One-Click"}}
	resp, err := env.client.PostForm(env.server.URL+"/unsubscribe/"+env.signer.Issue("sari@example.com"), form)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	n, err := env.store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	resp, err = env.client.PostForm(env.server.URL+"/unsubscribe/bogus", form)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), MsgTokenInvalid)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.metrics.IncrCounter("cycles.total")
	_, err := env.store.Add(context.Background(), "budi@example.com")
	require.NoError(t, err)

	resp, err := env.client.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 1, got.Subscribers)
	assert.Equal(t, int64(1), got.Metrics.Counters["cycles.total"])
}

type brokenStore struct{}

func (brokenStore) Add(context.Context, string) (bool, error) { return false, errors.New("disk full") }
func (brokenStore) Remove(context.Context, string) error { return errors.New("disk full") }
func (brokenStore) Count(context.Context) (int, error) { return 0, errors.New("disk full") }

func TestStoreFailures(t *testing.T) {
	signer := token.NewSigner("web-test-secret", token.UnsubscribeSalt)
	handler := New(brokenStore{}, signer, logger.NewMetrics()).Handler()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("email=budi%40example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)

	req = httptest.NewRequest(http.MethodPost, "/unsubscribe/"+signer.Issue("budi@example.com"), nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPopFlash_Garbled(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not base64", value: "%%%"},
		{name: "no separator", value: "c3VjY2Vzcw"},
		{name: "unknown category", value: "aW5mbwpoZWxsbw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: flashCookie, Value: tt.value})
			rec := httptest.NewRecorder()

			assert.Nil(t, popFlash(rec, req))
			require.Len(t, rec.Result().Cookies(), 1, "cookie is cleared anyway")
		})
	}
}
