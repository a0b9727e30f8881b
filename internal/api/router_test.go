package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/isdelr/hackernews-be/internal/api/handlers"
	"github.com/isdelr/hackernews-be/internal/apperr"
	"github.com/isdelr/hackernews-be/internal/auth"
	"github.com/isdelr/hackernews-be/internal/database"
	"github.com/isdelr/hackernews-be/internal/models"
	"github.com/isdelr/hackernews-be/internal/monitoring"
	"github.com/isdelr/hackernews-be/internal/resolvers"
	"github.com/isdelr/hackernews-be/internal/services"
	ws "github.com/isdelr/hackernews-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	*httptest.Server
	hub *ws.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith replaces the link store when links is non-nil.
func newTestServerWith(t *testing.T, links services.LinkServiceProvider) *testServer {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	tokens, err := auth.NewTokenService([]byte("router-test-secret"), time.Hour)
	require.NoError(t, err)
	hub := ws.NewHub(8)

	if links == nil {
		links = services.NewLinkService(db, time.Second)
	}

	stats, err := monitoring.NewStatUpdater(services.NewStatsService(db, time.Second), hub, "@every 1h")
	require.NoError(t, err)

	router := NewRouter(Deps{
		Resolver:   resolvers.NewResolver(tokens, auth.NewHasher(bcrypt.MinCost)),
		Identities: auth.NewIdentityResolver(tokens),
		Data: resolvers.DataAccess{
			Links: links,
			Users: services.NewUserService(db, time.Second),
			Votes: services.NewVoteService(db, time.Second),
		},
		Events:         hub,
		Stats:          stats,
		AllowedOrigins: []string{"http://localhost:3000"},
		DataRetries:    1,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &testServer{Server: srv, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+"/api/v1"+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func requireErrorKind(t *testing.T, resp *http.Response, status int, kind apperr.Kind) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	body := decode[handlers.ErrorBody](t, resp)
	assert.Equal(t, kind, body.Error.Kind)
	assert.NotEmpty(t, body.Error.Message)
}

func (s *testServer) signup(t *testing.T, login string) resolvers.AuthPayload {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/auth/signup", "", handlers.CredentialsPayload{Login: login, Password: "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[resolvers.AuthPayload](t, resp)
}

func TestInfo(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/info", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "This is the API of a Hackernews Clone", decode[map[string]string](t, resp)["info"])
}

func TestSignupLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	signed := s.signup(t, "alice")

	resp := s.do(t, http.MethodPost, "/auth/login", "", handlers.CredentialsPayload{Login: "alice", Password: "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logged := decode[resolvers.AuthPayload](t, resp)
	assert.Equal(t, signed.User, logged.User)

	resp = s.do(t, http.MethodGet, "/me", logged.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, signed.User, decode[resolvers.UserPayload](t, resp))

	resp = s.do(t, http.MethodPost, "/auth/signup", "", handlers.CredentialsPayload{Login: "alice", Password: "x"})
	requireErrorKind(t, resp, http.StatusConflict, apperr.LoginTaken)

	resp = s.do(t, http.MethodPost, "/auth/login", "", handlers.CredentialsPayload{Login: "alice", Password: "wrong"})
	requireErrorKind(t, resp, http.StatusUnauthorized, apperr.InvalidCredentials)
}

func TestPostWithoutAuthorization(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/links", "", handlers.PostPayload{URL: "http://a.com", Description: "A"})
	requireErrorKind(t, resp, http.StatusUnauthorized, apperr.NotAuthenticated)

	resp = s.do(t, http.MethodGet, "/feed", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]resolvers.LinkPayload](t, resp))
}

func TestBadAuthorizationHeaders(t *testing.T) {
	s := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/api/v1/feed", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer ")
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	requireErrorKind(t, resp, http.StatusUnauthorized, apperr.MissingToken)

	resp2 := s.do(t, http.MethodGet, "/feed", "garbage", nil)
	requireErrorKind(t, resp2, http.StatusUnauthorized, apperr.NotAuthenticated)
}

func TestPostFeedVote(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "u1")

	resp := s.do(t, http.MethodPost, "/links", user.Token, handlers.PostPayload{URL: "http://a.com", Description: "A"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	link := decode[resolvers.LinkPayload](t, resp)
	assert.Equal(t, int64(1), link.ID)
	assert.Equal(t, "http://a.com", link.URL)
	assert.Equal(t, "A", link.Description)

	resp = s.do(t, http.MethodGet, "/feed", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	feed := decode[[]resolvers.LinkPayload](t, resp)
	require.Len(t, feed, 1)
	assert.Equal(t, link.ID, feed[0].ID)

	resp = s.do(t, http.MethodPost, "/links/1/vote", user.Token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	vote := decode[resolvers.VotePayload](t, resp)
	assert.Equal(t, 1, vote.Link.Votes)

	resp = s.do(t, http.MethodPost, "/links/1/vote", user.Token, nil)
	requireErrorKind(t, resp, http.StatusConflict, apperr.AlreadyVoted)

	resp = s.do(t, http.MethodPost, "/links/99/vote", user.Token, nil)
	requireErrorKind(t, resp, http.StatusNotFound, apperr.LinkNotFound)

	resp = s.do(t, http.MethodGet, "/links/1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[resolvers.LinkPayload](t, resp).Votes)

	resp = s.do(t, http.MethodGet, "/links/abc", "", nil)
	requireErrorKind(t, resp, http.StatusBadRequest, apperr.InvalidInput)
}

func TestPostRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "u1")

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/v1/links", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+user.Token)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	requireErrorKind(t, resp, http.StatusBadRequest, apperr.InvalidInput)
}

func dialNewLink(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/v1/subscriptions/new-link"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return s.hub.SubscriberCount(resolvers.TopicNewLink) > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

type linkMessage struct {
	Type    string                `json:"type"`
	Payload resolvers.LinkPayload `json:"payload"`
}

func TestNewLinkSubscription(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "u1")
	conn := dialNewLink(t, s)

	resp := s.do(t, http.MethodPost, "/links", user.Token, handlers.PostPayload{URL: "http://a.com", Description: "A"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	posted := decode[resolvers.LinkPayload](t, resp)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg linkMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeNewLink, msg.Type)
	assert.Equal(t, posted.ID, msg.Payload.ID)
	assert.Equal(t, posted.URL, msg.Payload.URL)
	assert.Equal(t, posted.Description, msg.Payload.Description)
}

func TestSubscriptionDeregistersOnDisconnect(t *testing.T) {
	s := newTestServer(t)
	conn := dialNewLink(t, s)
	require.Equal(t, 1, s.hub.SubscriberCount(resolvers.TopicNewLink))

	conn.Close()
	assert.Eventually(t, func() bool { return s.hub.SubscriberCount(resolvers.TopicNewLink) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSubscriptionEndedByServer(t *testing.T) {
	s := newTestServer(t)
	conn := dialNewLink(t, s)

	s.hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type    string          `json:"type"`
		Payload ws.ErrorPayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeError, msg.Type)
	assert.Equal(t, string(apperr.DataUnavailable), msg.Payload.Kind)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

type unavailableLinks struct {
	mu    sync.Mutex
	calls int
}

func (l *unavailableLinks) fail() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return errors.New("database is locked")
}

func (l *unavailableLinks) attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *unavailableLinks) CreateLink(context.Context, string, string, int64) (models.Link, error) {
	return models.Link{}, l.fail()
}

func (l *unavailableLinks) GetAllLinks(context.Context) ([]models.Link, error) {
	return nil, l.fail()
}

func (l *unavailableLinks) GetLinkByID(context.Context, int64) (models.Link, error) {
	return models.Link{}, l.fail()
}

func TestFeedRetriesThenReportsUnavailable(t *testing.T) {
	links := &unavailableLinks{}
	s := newTestServerWith(t, links)

	resp := s.do(t, http.MethodGet, "/feed", "", nil)
	requireErrorKind(t, resp, http.StatusServiceUnavailable, apperr.DataUnavailable)
	// One attempt plus DataRetries retries.
	assert.Equal(t, 2, links.attempts())
}

func TestLinkRetriesThenReportsUnavailable(t *testing.T) {
	links := &unavailableLinks{}
	s := newTestServerWith(t, links)

	resp := s.do(t, http.MethodGet, "/links/1", "", nil)
	requireErrorKind(t, resp, http.StatusServiceUnavailable, apperr.DataUnavailable)
	assert.Equal(t, 2, links.attempts())
}

func TestPostIsNotRetried(t *testing.T) {
	links := &unavailableLinks{}
	s := newTestServerWith(t, links)
	user := s.signup(t, "u1")

	resp := s.do(t, http.MethodPost, "/links", user.Token, handlers.PostPayload{URL: "http://a.com", Description: "A"})
	requireErrorKind(t, resp, http.StatusServiceUnavailable, apperr.DataUnavailable)
	assert.Equal(t, 1, links.attempts())
}

func TestSubscriptionRejectsForeignOrigin(t *testing.T) {
	s := newTestServer(t)
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/v1/subscriptions/new-link"
	header := http.Header{}
	header.Set("Origin", "http://evil.example")

	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "u1")

	resp := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[monitoring.Snapshot](t, resp)
	assert.Equal(t, 1, snap.Stats.Users)
}
