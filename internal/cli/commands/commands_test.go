package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberdesk/memberdesk/internal/auth"
	"github.com/memberdesk/memberdesk/internal/config"
	"github.com/memberdesk/memberdesk/internal/storage"
)

const adminJSON = `{"id":1,"name":"Rahim Uddin","email":"admin@example.org","role":"super_admin"}`

// harness shares one in-memory store across command runs, like the keyring
// does between invocations of the real binary
type harness struct {
	kv      *storage.Memory
	out     bytes.Buffer
	baseURL string
}

func newHarness(t *testing.T, handler http.Handler) *harness {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &harness{kv: storage.NewMemory(), baseURL: srv.URL}
}

func (h *harness) factory(cmd *cobra.Command) (*Env, error) {
	cfg := config.Default()
	cfg.API.BaseURL = h.baseURL
	return NewEnv(cfg, h.kv, &h.out, zerolog.Nop()), nil
}

func (h *harness) run(cmd *cobra.Command, args ...string) error {
	h.out.Reset()
	cmd.SetArgs(args)
	cmd.SetOut(&h.out)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(context.Background())
}

func (h *harness) signIn(t *testing.T, token string) {
	t.Helper()
	require.NoError(t, storage.NewTokenStore(h.kv).Set(token))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestLogin_ThenWhoami(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email_or_phone"] != "admin@example.org" || body["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"user":`+adminJSON+`,"token":"T1"}`)
	})
	mux.HandleFunc("/api/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T1" {
			writeJSON(w, http.StatusUnauthorized, `{"message":"Unauthenticated."}`)
			return
		}
		writeJSON(w, http.StatusOK, adminJSON)
	})
	h := newHarness(t, mux)

	err := h.run(NewLoginCmd(h.factory), "--email", "admin@example.org", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid credentials")

	require.NoError(t, h.run(NewLoginCmd(h.factory), "--email", "admin@example.org", "--password", "secret"))
	assert.Contains(t, h.out.String(), "Login successful")
	assert.Contains(t, h.out.String(), "Rahim Uddin")

	token, ok := storage.NewTokenStore(h.kv).Get()
	require.True(t, ok)
	assert.Equal(t, "T1", token)

	// a fresh Env restores the session from storage
	require.NoError(t, h.run(NewWhoamiCmd(h.factory)))
	assert.Contains(t, h.out.String(), "Rahim Uddin")
	assert.Contains(t, h.out.String(), "super_admin")
}

func TestLogin_MemberIsDenied(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"user":{"id":2,"name":"Member","role":"member"},"token":"TM"}`)
	})
	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"message":"Logged out"}`)
	})
	h := newHarness(t, mux)

	err := h.run(NewLoginCmd(h.factory), "--email", "m@example.org", "--password", "secret")
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrAccessDenied))

	_, ok := storage.NewTokenStore(h.kv).Get()
	assert.False(t, ok)
}

func TestLogin_MissingCredentials(t *testing.T) {
	t.Setenv("MEMBERDESK_EMAIL", "")
	t.Setenv("MEMBERDESK_PASSWORD", "")
	h := newHarness(t, http.NotFoundHandler())

	err := h.run(NewLoginCmd(h.factory))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")

	err = h.run(NewLoginCmd(h.factory), "--email", "admin@example.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-interactive mode")
}

func TestLogin_ReadsEnvironment(t *testing.T) {
	t.Setenv("MEMBERDESK_EMAIL", "admin@example.org")
	t.Setenv("MEMBERDESK_PASSWORD", "secret")

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"user":`+adminJSON+`,"token":"T9"}`)
	})
	h := newHarness(t, mux)

	require.NoError(t, h.run(NewLoginCmd(h.factory)))
	token, _ := storage.NewTokenStore(h.kv).Get()
	assert.Equal(t, "T9", token)
}

func TestWhoami_NotLoggedIn(t *testing.T) {
	var calls int
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusOK, adminJSON)
	}))

	err := h.run(NewWhoamiCmd(h.factory))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
	assert.Zero(t, calls)
}

func TestLogout_ForgetsToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"message":"Logged out"}`)
	})
	h := newHarness(t, mux)
	h.signIn(t, "T1")

	require.NoError(t, h.run(NewLogoutCmd(h.factory)))
	assert.Contains(t, h.out.String(), "Logged out")
	assert.Equal(t, "Bearer T1", gotAuth)

	_, ok := storage.NewTokenStore(h.kv).Get()
	assert.False(t, ok)
}

func TestApplicationsList(t *testing.T) {
	var gotQuery string
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/membership-applications", r.URL.Path)
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, `{"data":[
			{"id":7,"full_name":"Karim Hossain","membership_type":"GENERAL","status":"PENDING","total_paid_amount":1500}
		],"meta":{"current_page":2,"last_page":3,"total":31}}`)
	}))
	h.signIn(t, "T1")

	require.NoError(t, h.run(NewApplicationsCmd(h.factory), "ls", "--status", "pending", "--page", "2"))
	assert.Equal(t, "page=2&status=PENDING", gotQuery)

	out := h.out.String()
	assert.Contains(t, out, "Karim Hossain")
	assert.Contains(t, out, "General")
	assert.Contains(t, out, "1500.00")
	assert.Contains(t, out, "Page 2 of 3 (31 total)")
	assert.Contains(t, out, "--page 3")
}

func TestList_InvalidFilters(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid filters must not reach the API")
	}))

	err := h.run(NewPaymentsCmd(h.factory), "ls", "--status", "unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filters")

	err = h.run(NewMembersCmd(h.factory), "ls", "--type", "platinum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filters")
}

func TestList_UnauthorizedSuggestsLogin(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Unauthenticated."}`)
	}))
	h.signIn(t, "T1")

	err := h.run(NewPaymentsCmd(h.factory), "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthenticated.")
	assert.Contains(t, err.Error(), "memberdesk login")

	_, ok := storage.NewTokenStore(h.kv).Get()
	assert.False(t, ok)
}

func TestMembersList(t *testing.T) {
	var gotQuery map[string][]string
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, `{"data":[],"meta":{"current_page":1,"last_page":1,"total":0}}`)
	}))
	h.signIn(t, "T1")

	require.NoError(t, h.run(NewMembersCmd(h.factory), "ls", "--search", " rahim ", "--type", "lifetime"))
	assert.Equal(t, []string{"rahim"}, gotQuery["search"])
	assert.Equal(t, []string{"LIFETIME"}, gotQuery["primary_member_type"])
	assert.NotContains(t, gotQuery, "page")
	assert.Contains(t, h.out.String(), "No members found.")
}

func TestPaymentShow(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/12", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"data":{"id":12,"name":"Karim Hossain","payment_purpose":"YEARLY_FEE","payment_amount":500,"status":"APPROVED"}}`)
	}))
	h.signIn(t, "T1")

	require.NoError(t, h.run(NewPaymentsCmd(h.factory), "show", "12"))
	out := h.out.String()
	assert.Contains(t, out, "Karim Hossain")
	assert.Contains(t, out, "500.00")
	assert.Contains(t, out, "Approved")

	err := h.run(NewPaymentsCmd(h.factory), "show", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid id "abc"`)
}

func TestApprove_NeedsConfirmation(t *testing.T) {
	var calls int
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusOK, `{"message":"Payment approved successfully"}`)
	}))
	h.signIn(t, "T1")

	err := h.run(NewPaymentsCmd(h.factory), "approve", "12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.Zero(t, calls)

	require.NoError(t, h.run(NewPaymentsCmd(h.factory), "approve", "12", "--yes"))
	assert.Equal(t, 1, calls)
	assert.Contains(t, h.out.String(), "✓ Payment approved successfully")
}

func TestSelfDeclarationReject_SendsReason(t *testing.T) {
	var gotPath, gotBody string
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		writeJSON(w, http.StatusOK, `{"message":"Self declaration rejected"}`)
	}))
	h.signIn(t, "T1")

	require.NoError(t, h.run(NewSelfDeclarationsCmd(h.factory), "reject", "5", "-y", "--reason", "Signature missing"))
	assert.Equal(t, "/api/self-declarations/5/reject", gotPath)
	assert.JSONEq(t, `{"rejected_reason":"Signature missing"}`, gotBody)
	assert.Contains(t, h.out.String(), "Self declaration rejected")
}

func TestApplicationReject_HasNoReasonFlag(t *testing.T) {
	h := newHarness(t, http.NotFoundHandler())

	err := h.run(NewApplicationsCmd(h.factory), "reject", "5", "--yes", "--reason", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestDecision_ValidationErrorIsReadable(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"message":"The given data was invalid.","errors":{"status":["Only pending applications can be approved."]}}`)
	}))
	h.signIn(t, "T1")

	err := h.run(NewApplicationsCmd(h.factory), "approve", "7", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The given data was invalid.")
	assert.Contains(t, err.Error(), "Only pending applications can be approved.")
}
