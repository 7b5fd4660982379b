package server

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type flashKind string

const (
	flashSuccess flashKind = "success"
	flashError   flashKind = "error"
)

// Flash is a one-shot notification carried across a redirect
type Flash struct {
	Kind    flashKind
	Message string
}

// setFlash queues a notification and saves the browser session, including any
// other value set on it during this request
func (s *Server) setFlash(c *gin.Context, kind flashKind, message string) {
	sess := sessions.Default(c)
	sess.AddFlash(string(kind) + "|" + message)
	if err := sess.Save(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to save browser session")
	}
}

// popFlash reads and clears the pending notification
func (s *Server) popFlash(c *gin.Context) *Flash {
	sess := sessions.Default(c)
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := sess.Save(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to save browser session")
	}

	raw, _ := flashes[len(flashes)-1].(string)
	kind, message, ok := strings.Cut(raw, "|")
	if !ok || message == "" {
		return nil
	}
	if flashKind(kind) != flashSuccess {
		kind = string(flashError)
	}
	return &Flash{Kind: flashKind(kind), Message: message}
}
