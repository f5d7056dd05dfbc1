package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/response"
)

type errorPage struct {
	Status    int
	Title     string
	Message   string
	RequestID string
}

// wantsHTML is true for browsers; API clients get the JSON envelope.
func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

func renderError(c *gin.Context, status int, code response.ErrCode) {
	if wantsHTML(c) {
		c.HTML(status, "error.html", errorPage{
			Status:    status,
			Title:     http.StatusText(status),
			Message:   response.GetMessage(code),
			RequestID: response.RequestID(c),
		})
		return
	}
	response.Fail(c, status, code)
}

// NotFound godoc
// Any unmatched route.
func NotFound(c *gin.Context) {
	renderError(c, http.StatusNotFound, response.ErrNotFound)
}

// MethodNotAllowed godoc
// A known path with the wrong method.
func MethodNotAllowed(c *gin.Context) {
	renderError(c, http.StatusMethodNotAllowed, response.ErrMethodNotAllowed)
}

// Recovery turns a handler panic into a 500 error page or envelope.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "recovery").Logger()
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Str("request_id", response.RequestID(c)).
			Msg("handler panicked")
		renderError(c, http.StatusInternalServerError, response.ErrInternal)
		c.Abort()
	})
}
