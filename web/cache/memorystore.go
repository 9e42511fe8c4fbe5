// Package cache provides an in-process session store for gin sessions with
// TTL eviction.
package cache

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/google/uuid"
	gorillasessions "github.com/gorilla/sessions"
	"github.com/gorilla/securecookie"
)

const (
	defaultMaxAge = 2 * 60 * 60
)

type entry struct {
	values    map[any]any
	expiresAt time.Time
}

// MemoryStore keeps session values in memory keyed by an opaque id. The
// cookie only carries the signed id.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]entry
	Codecs  []securecookie.Codec
	options *sessions.Options

	now func() time.Time
}

// NewMemoryStore creates a new memory store signing session ids with keyPairs.
func NewMemoryStore(keyPairs ...[]byte) *MemoryStore {
	return &MemoryStore{
		data:   make(map[string]entry),
		Codecs: securecookie.CodecsFromPairs(keyPairs...),
		options: &sessions.Options{
			Path:     "/",
			MaxAge:   defaultMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		now: time.Now,
	}
}

// Options sets the options for the store.
func (s *MemoryStore) Options(opts sessions.Options) {
	s.options = &opts
}

// Get retrieves a session, reusing the one already loaded for this request.
func (s *MemoryStore) Get(r *http.Request, name string) (*gorillasessions.Session, error) {
	return gorillasessions.GetRegistry(r).Get(s, name)
}

// New creates a new session, loading existing values when the request carries a valid cookie.
func (s *MemoryStore) New(r *http.Request, name string) (*gorillasessions.Session, error) {
	session := gorillasessions.NewSession(s, name)
	session.Options = s.options.ToGorillaOptions()
	session.IsNew = true

	if c, errCookie := r.Cookie(name); errCookie == nil {
		if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.Codecs...); err == nil {
			if s.load(session) {
				session.IsNew = false
			}
		}
		// an undecodable or unknown id falls through to a fresh session
		if session.IsNew {
			session.ID = ""
		}
	}

	return session, nil
}

// Save persists the session values and writes the id cookie. A negative
// MaxAge deletes the session.
func (s *MemoryStore) Save(r *http.Request, w http.ResponseWriter, session *gorillasessions.Session) error {
	if session.Options.MaxAge < 0 {
		s.delete(session.ID)
		http.SetCookie(w, s.newCookie(session, ""))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	s.save(session)

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.newCookie(session, encoded))
	return nil
}

// RemoveExpired evicts every session whose lifetime has passed and returns
// how many were removed.
func (s *MemoryStore) RemoveExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.data {
		if !now.Before(e.expiresAt) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) newCookie(session *gorillasessions.Session, value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     session.Name(),
		Value:    value,
		Path:     session.Options.Path,
		Domain:   session.Options.Domain,
		MaxAge:   session.Options.MaxAge,
		Secure:   session.Options.Secure,
		HttpOnly: session.Options.HttpOnly,
		SameSite: session.Options.SameSite,
	}
	if session.Options.MaxAge > 0 {
		cookie.Expires = s.now().Add(time.Duration(session.Options.MaxAge) * time.Second)
	}
	return cookie
}

func (s *MemoryStore) save(session *gorillasessions.Session) {
	maxAge := session.Options.MaxAge
	if maxAge == 0 {
		maxAge = s.options.MaxAge
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.ID] = entry{
		values:    copyValues(session.Values),
		expiresAt: s.now().Add(time.Duration(maxAge) * time.Second),
	}
}

// load copies the stored values into session. Expired entries are dropped.
func (s *MemoryStore) load(session *gorillasessions.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[session.ID]
	if !ok {
		return false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.data, session.ID)
		return false
	}
	session.Values = copyValues(e.values)
	return true
}

func (s *MemoryStore) delete(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}

func copyValues(src map[any]any) map[any]any {
	dst := make(map[any]any, len(src))
	for k, v := range src {
		if list, ok := v.([]any); ok {
			v = append([]any(nil), list...)
		}
		dst[k] = v
	}
	return dst
}
