package cli

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteCreate(t *testing.T) {
	rec := &requestRecorder{}
	resp := `{"invite":{"id":"inv-1","email":"alice@example.com","role":"user","status":"pending","expires_at":"2025-06-08T12:00:00Z","email_sent":true},"token":"raw-token","invite_link":"http://localhost:8080/invites/accept?token=raw-token"}`
	srv := httptest.NewServer(jsonHandler(rec, 201, resp))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv)
	rootCmd.SetArgs([]string{"--host", srv.URL, "invite", "create", "alice@example.com"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	output := restore()
	require.NoError(t, err)

	captured := rec.last()
	assert.Equal(t, "POST", captured.Method)
	assert.Equal(t, "/v1/invites", captured.Path)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(captured.Body), &body))
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, "user", body["role"])
	assert.Equal(t, true, body["send_email"])

	assert.Contains(t, output, "token=raw-token")
}

func TestInviteCreate_NoEmail(t *testing.T) {
	rec := &requestRecorder{}
	resp := `{"invite":{"id":"inv-1","email":"bob@example.com","role":"admin","status":"pending","email_sent":false},"token":"raw","invite_link":"http://x/invites/accept?token=raw"}`
	srv := httptest.NewServer(jsonHandler(rec, 201, resp))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv)
	rootCmd.SetArgs([]string{"--host", srv.URL, "invite", "create", "bob@example.com", "--role", "admin", "--no-email"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	output := restore()
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rec.last().Body), &body))
	assert.Equal(t, "admin", body["role"])
	assert.Equal(t, false, body["send_email"])
	assert.Contains(t, output, "share the link manually")
}

func TestInviteList_JSON(t *testing.T) {
	rec := &requestRecorder{}
	resp := `[{"id":"inv-1","email":"alice@example.com","role":"user","status":"expired","expires_at":"2025-06-08T12:00:00Z"}]`
	srv := httptest.NewServer(jsonHandler(rec, 200, resp))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv)
	rootCmd.SetArgs([]string{"--host", srv.URL, "--output", "json", "invite", "list"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	output := restore()
	require.NoError(t, err)

	assert.Equal(t, "GET", rec.last().Method)
	assert.Equal(t, "/v1/invites", rec.last().Path)

	var parsed []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &parsed))
	require.Len(t, parsed, 1)
	assert.Equal(t, "expired", parsed[0]["status"])
}

func TestInviteResend(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"email_sent":true}`))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv)
	rootCmd.SetArgs([]string{"--host", srv.URL, "invite", "resend", "inv-1"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	output := restore()
	require.NoError(t, err)

	assert.Equal(t, "POST", rec.last().Method)
	assert.Equal(t, "/v1/invites/inv-1/resend", rec.last().Path)
	assert.Contains(t, output, "resent")
}

func TestInviteRevoke(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 204, ""))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv)
	rootCmd.SetArgs([]string{"--host", srv.URL, "invite", "revoke", "inv-1"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	_ = restore()
	require.NoError(t, err)

	assert.Equal(t, "/v1/invites/inv-1/revoke", rec.last().Path)
}

func TestInviteValidate_UsesPublicEndpoint(t *testing.T) {
	rec := &requestRecorder{}
	resp := `{"email":"alice@example.com","role":"user","expires_at":"2025-06-08T12:00:00Z"}`
	srv := httptest.NewServer(jsonHandler(rec, 200, resp))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv)
	rootCmd.SetArgs([]string{"--host", srv.URL, "invite", "validate", "some-token"})

	restore := captureStdout(t)
	err := rootCmd.Execute()
	output := restore()
	require.NoError(t, err)

	captured := rec.last()
	assert.Equal(t, "/invites/validate", captured.Path, "validate is unauthenticated, not under /v1")
	assert.Contains(t, captured.Query, "token=some-token")
	assert.Contains(t, output, "alice@example.com")
}

func TestInviteValidate_ExpiredSurfacesKind(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 410, `{"code":410,"message":"invite has expired","kind":"expired"}`))
	defer srv.Close()

	rootCmd := newTestRootCmd(t, srv)
	rootCmd.SetArgs([]string{"--host", srv.URL, "invite", "validate", "stale"})

	err := rootCmd.Execute()
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "expired", apiErr.Kind)
}
