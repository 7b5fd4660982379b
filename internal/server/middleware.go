package server

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/memberdesk/memberdesk/internal/auth"
	"github.com/memberdesk/memberdesk/internal/config"
	"github.com/memberdesk/memberdesk/internal/models"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	userKey         = "user"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

type httpMetrics struct {
	requests *prometheus.CounterVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	return &httpMetrics{
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberdesk",
			Subsystem: "web",
			Name:      "requests_total",
			Help:      "Dashboard HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.httpMetrics.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()

		s.logger.Info().
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// CurrentUser returns the super admin set by the route guard
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// Decision is what the route guard does with a request
type Decision int

const (
	DecisionLoading Decision = iota
	DecisionRedirect
	DecisionDenied
	DecisionAllow
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRedirect:
		return "redirect"
	case DecisionDenied:
		return "denied"
	default:
		return "allow"
	}
}

// Decide maps a session snapshot to a guard decision.
//
// The session store never commits an authenticated record for another role, so
// in practice Denied comes from a check that just forced such an account out:
// the record is anonymous and carries the access-denied error.
func Decide(st auth.State) Decision {
	switch {
	case st.IsAuthenticated && st.User.IsSuperAdmin():
		return DecisionAllow
	case st.IsAuthenticated, st.Error == auth.ErrAccessDenied.Error():
		return DecisionDenied
	case st.IsLoading:
		return DecisionLoading
	default:
		return DecisionRedirect
	}
}

// Session is what the guard needs from the session store
type Session interface {
	Snapshot() auth.State
	CheckAuth(ctx context.Context) auth.State
	Verified() bool
	ClearError()
}

// BrowserCheck reports whether a request comes from the browser the session
// belongs to
type BrowserCheck func(c *gin.Context) bool

// RouteGuard gates the protected dashboard. The first guarded request of the
// process triggers a single session check, unless a login already verified
// the session.
type RouteGuard struct {
	session Session
	bound   BrowserCheck
	wait    time.Duration
	logger  zerolog.Logger

	once    sync.Once
	checked chan struct{}

	// Loading and Denied render the pending and access-denied views
	Loading gin.HandlerFunc
	Denied  gin.HandlerFunc
}

// NewRouteGuard builds the guard. Only requests passing bound reach protected
// content; a nil bound accepts every request.
func NewRouteGuard(session Session, bound BrowserCheck, wait time.Duration, zlog zerolog.Logger) *RouteGuard {
	if wait <= 0 {
		wait = config.DefaultSettleWait
	}
	return &RouteGuard{
		session: session,
		bound:   bound,
		wait:    wait,
		logger:  zlog,
		checked: make(chan struct{}),
		Loading: renderLoading,
		Denied:  renderDenied,
	}
}

func (g *RouteGuard) trigger() {
	g.once.Do(func() {
		go func() {
			defer close(g.checked)
			st := g.session.CheckAuth(context.Background())
			g.logger.Debug().Str("status", string(st.Status())).Msg("Route guard session check settled")
		}()
	})
}

func (g *RouteGuard) checkDone() bool {
	select {
	case <-g.checked:
		return true
	default:
		return false
	}
}

// Middleware returns the gin handler enforcing the guard
func (g *RouteGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := g.session.Snapshot()

		if !st.IsAuthenticated || !g.session.Verified() {
			g.trigger()

			timer := time.NewTimer(g.wait)
			select {
			case <-g.checked:
			case <-timer.C:
			case <-c.Request.Context().Done():
			}
			timer.Stop()

			st = g.session.Snapshot()
			if !g.checkDone() && !g.session.Verified() {
				// a restored session is not trusted until the check settles
				st = auth.State{IsLoading: true}
			}
		}

		decision := Decide(st)
		if decision == DecisionAllow && g.bound != nil && !g.bound(c) {
			g.logger.Warn().Str("path", c.Request.URL.Path).Str("client_ip", c.ClientIP()).Msg("Request from a browser that does not hold the session")
			decision = DecisionRedirect
		}

		switch decision {
		case DecisionAllow:
			c.Set(userKey, st.User)
			c.Next()
		case DecisionLoading:
			g.Loading(c)
			c.Abort()
		case DecisionDenied:
			g.logger.Warn().Str("path", c.Request.URL.Path).Msg("Access denied: not a super admin")
			if !st.IsAuthenticated {
				// shown once; the next request goes to the login page
				g.session.ClearError()
			}
			g.Denied(c)
			c.Abort()
		default:
			c.Redirect(http.StatusFound, loginRedirect(c.Request.URL.RequestURI()))
			c.Abort()
		}
	}
}

func loginRedirect(from string) string {
	return "/login?from=" + url.QueryEscape(from)
}

func renderLoading(c *gin.Context) {
	c.Header("Refresh", "1")
	c.HTML(http.StatusOK, "loading.tmpl", gin.H{"Title": "Loading"})
}

func renderDenied(c *gin.Context) {
	c.HTML(http.StatusForbidden, "denied.tmpl", gin.H{"Title": "Access Denied"})
}
