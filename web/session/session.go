// Package session provides the login-session and flash-message helpers on
// top of gin-contrib/sessions.
package session

import (
	"encoding/gob"
	"net/http"
	"time"

	"github.com/recipebox/recipebox/database/model"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// CookieName is the name of the session cookie.
const CookieName = "Sessionid"

const loginUser = "LOGIN_USER"

// Flash kinds.
const (
	FlashError   = "error"
	FlashSuccess = "success"
)

var now = time.Now

// LoginUser is the identity copied into the session at login. It never
// points back into the store.
type LoginUser struct {
	Id        int
	Username  string
	IsAdmin   bool
	ExpiresAt time.Time
}

func init() {
	gob.Register(LoginUser{})
}

// SetLoginUser stores user in the session with an absolute lifetime of
// maxAge from now. Activity never extends it.
func SetLoginUser(c *gin.Context, user *model.User, maxAge time.Duration) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.Set(loginUser, LoginUser{
		Id:        user.Id,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		ExpiresAt: now().Add(maxAge),
	})
	return s.Save()
}

// GetLoginUser returns the logged in user, or nil when there is no session
// or it has expired.
func GetLoginUser(c *gin.Context) *LoginUser {
	s := sessions.Default(c)
	obj := s.Get(loginUser)
	if obj == nil {
		return nil
	}
	user, ok := obj.(LoginUser)
	if !ok || !now().Before(user.ExpiresAt) {
		return nil
	}
	return &user
}

// IsLogin reports whether the request carries an active session.
func IsLogin(c *gin.Context) bool {
	return GetLoginUser(c) != nil
}

// DropLoginUser removes a stale identity from the session without saving it.
func DropLoginUser(c *gin.Context) {
	sessions.Default(c).Delete(loginUser)
}

// ClearSession destroys the session and expires its cookie.
func ClearSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	return s.Save()
}

// AddFlash queues a one-shot message of the given kind for the next rendered page.
func AddFlash(c *gin.Context, kind string, messages ...string) error {
	s := sessions.Default(c)
	for _, msg := range messages {
		s.AddFlash(msg, kind)
	}
	return s.Save()
}

// Flashes consumes every queued message of the given kind. The consumption
// only sticks once the session is saved.
func Flashes(c *gin.Context, kind string) []string {
	s := sessions.Default(c)
	raw := s.Flashes(kind)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if msg, ok := v.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}

// Save persists pending session changes.
func Save(c *gin.Context) error {
	return sessions.Default(c).Save()
}
