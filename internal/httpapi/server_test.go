package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empirepilot/internal/admin"
	"empirepilot/internal/content"
	"empirepilot/internal/news"
	"empirepilot/internal/pilot"
	"empirepilot/internal/queue"
	"empirepilot/internal/quote"
	"empirepilot/internal/storage/memory"
)

const token = "s3cret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, nil)
}

func newTestServerWith(t *testing.T, configure func(*Config, *redis.Client)) *httptest.Server {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	site, err := content.Load()
	require.NoError(t, err)

	store := memory.New()
	p := pilot.NewService(pilot.Config{
		Store:  store,
		Drafts: pilot.NewRedisDrafts(rdb, time.Hour),
		Dedupe: queue.NewDeduplicator(rdb, time.Hour),
		Logger: zerolog.Nop(),
	})
	t.Cleanup(p.Close)

	cfg := Config{
		Pilot:      p,
		News:       news.NewService(news.Config{Store: store, Demo: site, Logger: zerolog.Nop()}),
		Quotes:     quote.NewService(quote.Config{Store: store, Logger: zerolog.Nop()}),
		Admin:      admin.NewService(admin.Config{Store: store, Logger: zerolog.Nop()}),
		Site:       site,
		AdminToken: token,
		Logger:     zerolog.Nop(),
	}
	if configure != nil {
		configure(&cfg, rdb)
	}
	srv := New(cfg)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, ts.URL+path, rd)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

var adminAuth = map[string]string{"Authorization": "Bearer " + token}

func TestChatFlow(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodPost, "/api/chat/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sess sessionView
	require.NoError(t, json.Unmarshal(body, &sess))
	require.NotEmpty(t, sess.SessionID)
	require.Len(t, sess.Messages, 1)
	assert.Contains(t, sess.Messages[0].HTML, "<strong>Empire Contractors Ltd</strong>")
	assert.Len(t, sess.QuickActions, 4)

	resp, _ = do(t, ts, http.MethodPost, "/api/chat/sessions", map[string]string{"sessionId": sess.SessionID}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	path := "/api/chat/sessions/" + sess.SessionID
	resp, body = do(t, ts, http.MethodPost, path+"/messages", map[string]string{"text": "I'd like a quote"}, map[string]string{"Idempotency-Key": "k1"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var msg messageView
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, "I'd like a quote", msg.Content)

	resp, _ = do(t, ts, http.MethodPost, path+"/messages", map[string]string{"text": "I'd like a quote"}, map[string]string{"Idempotency-Key": "k1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, ts, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &sess))
	assert.Len(t, sess.Messages, 3)
	assert.Equal(t, "qualifying", string(sess.Lead.Status))
}

func TestChatErrors(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, ts, http.MethodGet, "/api/chat/sessions/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/chat/sessions/s1/messages", map[string]string{"text": "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/chat/sessions/s1/actions/teleport", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/chat/sessions/s1/actions/hmo", nil, nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestClientLimitSpansSessions(t *testing.T) {
	ts := newTestServerWith(t, func(cfg *Config, rdb *redis.Client) {
		cfg.ClientLimiter = queue.NewRateLimiter(rdb, 2)
	})

	for i, id := range []string{"fresh-1", "fresh-2"} {
		resp, _ := do(t, ts, http.MethodPost, "/api/chat/sessions/"+id+"/messages", map[string]string{"text": "hello"}, nil)
		require.Equal(t, http.StatusAccepted, resp.StatusCode, "message %d", i)
	}

	resp, _ := do(t, ts, http.MethodPost, "/api/chat/sessions/fresh-3/messages", map[string]string{"text": "hello"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp, _ = do(t, ts, http.MethodPost, "/api/chat/sessions/fresh-4/actions/hmo", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodGet, "/api/chat/sessions/fresh-3", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQuoteEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodGet, "/api/quote/options", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var opts quote.Options
	require.NoError(t, json.Unmarshal(body, &opts))
	assert.Len(t, opts.ProjectTypes, 5)

	resp, body = do(t, ts, http.MethodPost, "/api/quote/validate/1", map[string]string{"projectType": "castle"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var eb errorBody
	require.NoError(t, json.Unmarshal(body, &eb))
	assert.Equal(t, 1, eb.Step)
	assert.Contains(t, eb.Fields, "projectType")

	resp, _ = do(t, ts, http.MethodPost, "/api/quote/validate/9", map[string]string{}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	sub := quote.Submission{
		ProjectType: "hmo", Budget: "£100,000 - £250,000", Timeline: "ASAP", Address: "1 High St, Southsea",
		Name: "Jane", Email: "jane@example.com", Phone: "07700 900000",
	}
	resp, _ = do(t, ts, http.MethodPost, "/api/quote/validate/3", sub, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, ts, http.MethodPost, "/api/quotes", sub, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sum quote.Summary
	require.NoError(t, json.Unmarshal(body, &sum))
	assert.Equal(t, "HMO Conversion", sum.ProjectTypeLabel)

	resp, body = do(t, ts, http.MethodGet, "/api/admin/quotes", nil, adminAuth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"projectTypeLabel":"HMO Conversion"`)
}

func TestNewsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodGet, "/api/news", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var posts []postView
	require.NoError(t, json.Unmarshal(body, &posts))
	assert.Len(t, posts, 3)

	resp, _ = do(t, ts, http.MethodPost, "/api/admin/news", news.Draft{Text: "Steel frame is up"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/admin/news", news.Draft{Text: ""}, adminAuth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, ts, http.MethodPost, "/api/admin/news", news.Draft{Text: "Steel frame is up"}, adminAuth)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created postView
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "structural", created.Template)
	assert.NotEmpty(t, created.HTML)

	// Drafts stay off the public feed until published.
	_, body = do(t, ts, http.MethodGet, "/api/news", nil, nil)
	require.NoError(t, json.Unmarshal(body, &posts))
	assert.Len(t, posts, 3)

	resp, _ = do(t, ts, http.MethodPost, "/api/admin/news/"+created.ID+"/publish", nil, adminAuth)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = do(t, ts, http.MethodGet, "/api/news", nil, nil)
	require.NoError(t, json.Unmarshal(body, &posts))
	require.Len(t, posts, 4)
	assert.Equal(t, created.ID, posts[0].ID)

	resp, _ = do(t, ts, http.MethodPost, "/api/admin/news/post_missing/publish", nil, adminAuth)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, ts, http.MethodPost, "/api/admin/news/preview", map[string]string{"text": "HMO finished"}, adminAuth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"template":"hmo"`)

	resp, body = do(t, ts, http.MethodGet, "/api/news/tags", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "#StructuralSteel")
}

func TestAdminEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodPost, "/api/chat/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sess sessionView
	require.NoError(t, json.Unmarshal(body, &sess))

	resp, _ = do(t, ts, http.MethodGet, "/api/admin/stats", nil, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = do(t, ts, http.MethodGet, "/api/admin/stats", nil, adminAuth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"totalChats":1`)

	resp, body = do(t, ts, http.MethodGet, "/api/admin/conversations?status=active", nil, adminAuth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var convs []sessionView
	require.NoError(t, json.Unmarshal(body, &convs))
	require.Len(t, convs, 1)

	resp, _ = do(t, ts, http.MethodPost, "/api/admin/conversations/"+sess.SessionID+"/close", nil, adminAuth)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = do(t, ts, http.MethodGet, "/api/admin/conversations/"+sess.SessionID, nil, adminAuth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"closed"`)

	resp, _ = do(t, ts, http.MethodGet, "/api/admin/conversations/missing", nil, adminAuth)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, ts, http.MethodGet, "/api/admin/leads.csv", nil, adminAuth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
	assert.True(t, strings.HasPrefix(string(body), "session_id,"))
}

func TestSiteContent(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodGet, "/api/content/company", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "023 9212 3456")

	resp, _ = do(t, ts, http.MethodGet, "/api/content/projects?category=HMO", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodGet, "/api/content/careers", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
