package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/memberdesk/memberdesk/internal/client"
	"github.com/memberdesk/memberdesk/internal/models"
	"github.com/memberdesk/memberdesk/internal/resources"
)

// page builds the template data shared by every view
func (s *Server) page(c *gin.Context, title string, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Flash"] = s.popFlash(c)
	data["RequestID"] = c.GetString(requestIDKey)
	if user, ok := CurrentUser(c); ok {
		data["User"] = user
	}
	return data
}

// apiFailure reports a failed API call. A rejected session goes back to the
// login page, anything else becomes a notification on redirectTo.
func (s *Server) apiFailure(c *gin.Context, err error, redirectTo string) {
	if errors.Is(err, client.ErrAuth) {
		c.Redirect(http.StatusFound, loginRedirect(redirectTo))
		return
	}

	s.logger.Warn().Err(err).Str("request_id", c.GetString(requestIDKey)).Str("path", c.Request.URL.Path).Msg("API call failed")
	s.setFlash(c, flashError, client.Message(err))
	c.Redirect(http.StatusFound, redirectTo)
}

func (s *Server) resourceID(c *gin.Context, listPath string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.setFlash(c, flashError, "Invalid record id.")
		c.Redirect(http.StatusFound, listPath)
		return 0, false
	}
	return id, true
}

// DashboardCounts are the headline numbers on the dashboard
type DashboardCounts struct {
	PendingApplications     int
	Members                 int
	PendingPayments         int
	PendingSelfDeclarations int
}

func (s *Server) dashboard(c *gin.Context) {
	var counts DashboardCounts
	pending := client.ListQuery{Status: models.StatusPending}

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		p, err := s.api.ListApplications(ctx, pending)
		if err != nil {
			return err
		}
		counts.PendingApplications = p.Meta.Total
		return nil
	})
	g.Go(func() error {
		p, err := s.api.ListMembers(ctx, client.ListQuery{})
		if err != nil {
			return err
		}
		counts.Members = p.Meta.Total
		return nil
	})
	g.Go(func() error {
		p, err := s.api.ListPayments(ctx, pending)
		if err != nil {
			return err
		}
		counts.PendingPayments = p.Meta.Total
		return nil
	})
	g.Go(func() error {
		p, err := s.api.ListSelfDeclarations(ctx, pending)
		if err != nil {
			return err
		}
		counts.PendingSelfDeclarations = p.Meta.Total
		return nil
	})

	data := gin.H{}
	if err := g.Wait(); err != nil {
		if errors.Is(err, client.ErrAuth) {
			c.Redirect(http.StatusFound, loginRedirect("/dashboard"))
			return
		}
		s.logger.Warn().Err(err).Msg("Failed to load dashboard counts")
		data["Error"] = client.Message(err)
	}
	data["Counts"] = counts

	c.HTML(http.StatusOK, "dashboard.tmpl", s.page(c, "Dashboard", data))
}

// listPage renders one resource list. A bare URL refetches the view with its
// remembered filters; a query string is loaded as given and becomes the
// remembered one if no newer request overtook it.
func listPage[T any](s *Server, c *gin.Context, view *resources.ListView[T], tmpl, title string) {
	ctx := c.Request.Context()
	data := gin.H{
		"Path":     c.Request.URL.Path,
		"Statuses": models.ReviewStatuses,
		"Types":    models.MembershipTypes,
	}

	var (
		st  resources.ViewState[T]
		err error
	)

	if c.Request.URL.RawQuery == "" {
		st, err = view.Refetch(ctx)
	} else {
		var q client.ListQuery
		if bindErr := c.ShouldBindQuery(&q); bindErr != nil {
			q = client.ListQuery{}
			data["FilterErrors"] = map[string][]string{"page": {"The page must be a number."}}
		} else if verr := s.validator.Struct(q); verr != nil {
			data["FilterErrors"] = models.FieldErrors(verr)
			q = client.ListQuery{}
		}

		// the request carries its own query; concurrent tabs never mix filters
		delta := 0
		switch c.Query("nav") {
		case "next":
			delta = 1
		case "prev":
			delta = -1
		}
		st, err = view.Navigate(ctx, q, delta)
	}

	if errors.Is(err, client.ErrAuth) {
		c.Redirect(http.StatusFound, loginRedirect(c.Request.URL.RequestURI()))
		return
	}

	data["View"] = st
	c.HTML(http.StatusOK, tmpl, s.page(c, title, data))
}

func (s *Server) listApplications(c *gin.Context) {
	listPage(s, c, s.views.Applications, "applications.tmpl", "Membership Applications")
}

func (s *Server) listMembers(c *gin.Context) {
	listPage(s, c, s.views.Members, "members.tmpl", "Members")
}

func (s *Server) listPayments(c *gin.Context) {
	listPage(s, c, s.views.Payments, "payments.tmpl", "Payments")
}

func (s *Server) listSelfDeclarations(c *gin.Context) {
	listPage(s, c, s.views.SelfDeclarations, "self_declarations.tmpl", "Self Declarations")
}

// liveMemberSearch serves the search-as-you-type table body. Requests
// superseded by a newer keystroke get 204.
func (s *Server) liveMemberSearch(c *gin.Context) {
	var q client.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if err := s.validator.Struct(q); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	var st resources.ViewState[models.Member]
	err := s.views.MemberSearch.Do(c.Request.Context(), func(ctx context.Context) error {
		var loadErr error
		st, loadErr = s.views.Members.Fetch(ctx, q)
		return loadErr
	})

	switch {
	case errors.Is(err, resources.ErrSuperseded), errors.Is(err, context.Canceled):
		c.Status(http.StatusNoContent)
		return
	case errors.Is(err, client.ErrAuth):
		c.Status(http.StatusUnauthorized)
		return
	}

	c.HTML(http.StatusOK, "member_rows.tmpl", gin.H{"View": st})
}
