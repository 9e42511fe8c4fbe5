package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "Sessionid"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore() (*MemoryStore, *clock) {
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore([]byte("0123456789abcdef0123456789abcdef"))
	s.now = c.now
	s.Options(sessions.Options{Path: "/", MaxAge: 3600, HttpOnly: true})
	return s, c
}

// saveValue stores key=value in a fresh session and returns the session cookie.
func saveValue(t *testing.T, s *MemoryStore, key, value string) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	session, err := s.New(req, cookieName)
	require.NoError(t, err)
	assert.True(t, session.IsNew)
	session.Values[key] = value
	require.NoError(t, s.Save(req, rec, session))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func load(t *testing.T, s *MemoryStore, cookie *http.Cookie) (map[any]any, bool) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	session, err := s.New(req, cookieName)
	require.NoError(t, err)
	return session.Values, !session.IsNew
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s, _ := newTestStore()
	cookie := saveValue(t, s, "user", "alice")

	assert.Equal(t, cookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.NotContains(t, cookie.Value, "alice")

	values, found := load(t, s, cookie)
	assert.True(t, found)
	assert.Equal(t, "alice", values["user"])
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreRejectsForgedCookie(t *testing.T) {
	s, _ := newTestStore()
	saveValue(t, s, "user", "alice")

	values, found := load(t, s, &http.Cookie{Name: cookieName, Value: "forged"})
	assert.False(t, found)
	assert.Empty(t, values)

	other := NewMemoryStore([]byte("another-key-another-key-another-k"))
	foreign := saveValue(t, other, "user", "mallory")
	_, found = load(t, s, foreign)
	assert.False(t, found)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s, c := newTestStore()
	cookie := saveValue(t, s, "user", "alice")

	c.t = c.t.Add(59 * time.Minute)
	_, found := load(t, s, cookie)
	assert.True(t, found)

	c.t = c.t.Add(time.Minute)
	_, found = load(t, s, cookie)
	assert.False(t, found)
	assert.Zero(t, s.Len())
}

func TestMemoryStoreRemoveExpired(t *testing.T) {
	s, c := newTestStore()
	saveValue(t, s, "user", "alice")
	c.t = c.t.Add(30 * time.Minute)
	saveValue(t, s, "user", "bob")

	c.t = c.t.Add(45 * time.Minute)
	assert.Equal(t, 1, s.RemoveExpired())
	assert.Equal(t, 1, s.Len())

	c.t = c.t.Add(time.Hour)
	assert.Equal(t, 1, s.RemoveExpired())
	assert.Zero(t, s.Len())
}

func TestMemoryStoreDeleteOnNegativeMaxAge(t *testing.T) {
	s, _ := newTestStore()
	cookie := saveValue(t, s, "user", "alice")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	session, err := s.New(req, cookieName)
	require.NoError(t, err)
	session.Options.MaxAge = -1
	require.NoError(t, s.Save(req, rec, session))

	assert.Zero(t, s.Len())
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestMemoryStoreIsolatesLoadedValues(t *testing.T) {
	s, _ := newTestStore()
	cookie := saveValue(t, s, "user", "alice")

	values, _ := load(t, s, cookie)
	values["user"] = "mallory"

	values, _ = load(t, s, cookie)
	assert.Equal(t, "alice", values["user"])
}

func TestMemoryStoreIssuesFreshIdForUnknownSession(t *testing.T) {
	s, c := newTestStore()
	stale := saveValue(t, s, "user", "alice")

	c.t = c.t.Add(2 * time.Hour)
	assert.Equal(t, 1, s.RemoveExpired())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(stale)
	rec := httptest.NewRecorder()
	session, err := s.New(req, cookieName)
	require.NoError(t, err)
	assert.True(t, session.IsNew)
	assert.Empty(t, session.ID)

	session.Values["user"] = "bob"
	require.NoError(t, s.Save(req, rec, session))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, stale.Value, cookies[0].Value)

	_, found := load(t, s, stale)
	assert.False(t, found)
	values, found := load(t, s, cookies[0])
	assert.True(t, found)
	assert.Equal(t, "bob", values["user"])
}
