package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/memberdesk/memberdesk/internal/auth"
	"github.com/memberdesk/memberdesk/internal/client"
	"github.com/memberdesk/memberdesk/internal/models"
)

const defaultLanding = "/dashboard"

// loginForm is the body of POST /login
type loginForm struct {
	EmailOrPhone string `form:"email_or_phone" validate:"required,max=255"`
	Password     string `form:"password" validate:"required,max=255"`
	From         string `form:"from"`
}

// SessionResponse is the public view of the operator session
type SessionResponse struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	IsLoading       bool         `json:"isLoading"`
	User            *models.User `json:"user"`
	Error           string       `json:"error,omitempty"`
}

// safeRedirect keeps post-login navigation on this site
func safeRedirect(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return defaultLanding
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" {
		return defaultLanding
	}
	if u.Path == "/login" || u.Path == "/logout" {
		return defaultLanding
	}
	return from
}

func (s *Server) loginPage(c *gin.Context) {
	from := c.Query("from")

	st := s.session.Snapshot()
	if st.IsAuthenticated && s.browserBound(c) {
		c.Redirect(http.StatusFound, safeRedirect(from))
		return
	}

	data := gin.H{"From": from, "Error": st.Error}
	if st.Error != "" {
		s.session.ClearError()
	}
	c.HTML(http.StatusOK, "login.tmpl", s.page(c, "Sign in", data))
}

func (s *Server) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "login.tmpl", s.page(c, "Sign in", gin.H{"Error": "Invalid request"}))
		return
	}

	if err := s.validator.Struct(form); err != nil {
		c.HTML(http.StatusUnprocessableEntity, "login.tmpl", s.page(c, "Sign in", gin.H{
			"From":         form.From,
			"EmailOrPhone": form.EmailOrPhone,
			"FieldErrors":  models.FieldErrors(err),
		}))
		return
	}

	user, err := s.session.Login(c.Request.Context(), form.EmailOrPhone, form.Password)
	if err != nil {
		s.session.ClearError()

		status := http.StatusBadGateway
		switch {
		case errors.Is(err, auth.ErrAccessDenied):
			status = http.StatusForbidden
		case errors.Is(err, client.ErrAuth):
			status = http.StatusUnauthorized
		case errors.Is(err, client.ErrValidation):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, auth.ErrSuperseded):
			status = http.StatusConflict
		}

		s.logger.Warn().Err(err).Str("identifier", form.EmailOrPhone).Int("status", status).Msg("Login failed")
		c.HTML(status, "login.tmpl", s.page(c, "Sign in", gin.H{
			"From":         form.From,
			"EmailOrPhone": form.EmailOrPhone,
			"Error":        client.Message(err),
			"FieldErrors":  client.FieldErrors(err),
		}))
		return
	}

	if err := s.bindBrowser(c); err != nil {
		s.logger.Error().Err(err).Msg("Failed to bind the session to this browser")
		s.session.Logout(c.Request.Context())
		c.HTML(http.StatusInternalServerError, "login.tmpl", s.page(c, "Sign in", gin.H{
			"From":         form.From,
			"EmailOrPhone": form.EmailOrPhone,
			"Error":        "Could not start a session in this browser. Please try again.",
		}))
		return
	}

	// saves the browser secret along with the flash
	s.setFlash(c, flashSuccess, "Welcome back, "+user.Name+".")
	c.Redirect(http.StatusFound, safeRedirect(form.From))
}

func (s *Server) logout(c *gin.Context) {
	s.session.Logout(c.Request.Context())
	s.unbindBrowser(c)
	s.setFlash(c, flashSuccess, "You have been signed out.")
	c.Redirect(http.StatusFound, "/login")
}

// @Summary Current session
// @Description Authentication status of the operator session as seen by the calling browser. The token is never exposed.
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/session [get]
func (s *Server) getSession(c *gin.Context) {
	st := s.session.Snapshot()
	resp := SessionResponse{
		IsLoading: st.IsLoading,
		Error:     st.Error,
	}
	if st.IsAuthenticated && s.browserBound(c) {
		resp.IsAuthenticated = true
		resp.User = st.User
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) notFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if s.session.Snapshot().IsAuthenticated && s.browserBound(c) {
		c.Redirect(http.StatusFound, defaultLanding)
		return
	}
	c.Redirect(http.StatusFound, "/login")
}
