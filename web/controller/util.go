package controller

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/recipebox/recipebox/config"
	"github.com/recipebox/recipebox/logger"
	"github.com/recipebox/recipebox/web/session"

	"github.com/gin-gonic/gin"
)

// getRemoteIp extracts the real IP address from the request headers or remote address.
func getRemoteIp(c *gin.Context) string {
	value := c.GetHeader("X-Real-IP")
	if value != "" {
		return value
	}
	value = c.GetHeader("X-Forwarded-For")
	if value != "" {
		ips := strings.Split(value, ",")
		return strings.TrimSpace(ips[0])
	}
	addr := c.Request.RemoteAddr
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return ip
}

// html renders an HTML template after consuming the pending flash messages.
func html(c *gin.Context, name string, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["title"] = I18nWeb(c, title)
	data["lang"] = c.GetString("lang")
	data["user"] = session.GetLoginUser(c)
	data["errors"] = session.Flashes(c, session.FlashError)
	data["successes"] = session.Flashes(c, session.FlashSuccess)
	if err := session.Save(c); err != nil {
		logger.Warning("Unable to save session:", err)
	}
	c.HTML(http.StatusOK, name, getContext(data))
}

// getContext adds version and other context data to the provided gin.H.
func getContext(h gin.H) gin.H {
	a := gin.H{
		"cur_ver": config.GetVersion(),
	}
	for key, value := range h {
		a[key] = value
	}
	return a
}

// redirectWithFlash queues the translated messages and redirects to path.
func redirectWithFlash(c *gin.Context, kind string, path string, keys ...string) {
	msgs := make([]string, 0, len(keys))
	for _, key := range keys {
		msgs = append(msgs, I18nWeb(c, key))
	}
	if err := session.AddFlash(c, kind, msgs...); err != nil {
		logger.Warning("Unable to save session:", err)
	}
	c.Redirect(http.StatusFound, path)
}

// internalError logs err and answers a bare 500.
func internalError(c *gin.Context, err error) {
	logger.Error(c.Request.Method, c.Request.URL.Path, "failed:", err)
	c.String(http.StatusInternalServerError, I18nWeb(c, "internalError"))
	c.Abort()
}

// paramId parses a positive integer path parameter.
func paramId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
