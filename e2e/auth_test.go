//go:build e2e

package e2e

import (
	"context"
	"net/http"
	"os/exec"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAuth runs all auth scenarios against one password-protected server,
// kept apart from the main server so login attempts don't hit its rate limits
func TestAuth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := exec.CommandContext(ctx, testBinary, serverArgs(":18081", "--web.password-hash="+passwordHash)...)
	require.NoError(t, cmd.Start())
	defer func() { _ = cmd.Process.Kill() }()
	require.NoError(t, waitForServer(authBaseURL+"/ping", 10*time.Second))

	t.Run("dashboard redirects to login", func(t *testing.T) {
		page := newPage(t)
		_, err := page.Goto(authBaseURL)
		require.NoError(t, err)
		require.NoError(t, page.WaitForURL("**/login"))

		title, err := page.Title()
		require.NoError(t, err)
		assert.Equal(t, "Brand Studio - Login", title)
		waitVisible(t, page.Locator(".login-card input[name='password']"))
	})

	t.Run("wrong password stays on login", func(t *testing.T) {
		page := newPage(t)
		submitPassword(t, page, "not-the-password")

		msg := page.Locator(".error-message")
		waitVisible(t, msg)
		text, err := msg.TextContent()
		require.NoError(t, err)
		assert.Equal(t, "Invalid password", text)
		assert.Contains(t, page.URL(), "/login")
	})

	t.Run("studio works after login", func(t *testing.T) {
		page := newPage(t)
		submitPassword(t, page, testPassword)
		require.NoError(t, page.WaitForURL(authBaseURL+"/"))
		waitVisible(t, page.Locator("#studio"))

		// htmx requests carry the auth cookie, so edits go through
		require.NoError(t, page.Locator("button.choice", playwright.PageLocatorOptions{HasText: "Glossy"}).Click())
		waitText(t, page.Locator(".history-pos"), "step 2 of 2", 5*time.Second)
	})

	t.Run("logout drops access", func(t *testing.T) {
		page := newPage(t)
		submitPassword(t, page, testPassword)
		require.NoError(t, page.WaitForURL(authBaseURL+"/"))

		require.NoError(t, page.Locator("a[href$='/logout']").Click())
		require.NoError(t, page.WaitForURL("**/login"))

		_, err := page.Goto(authBaseURL)
		require.NoError(t, err)
		require.NoError(t, page.WaitForURL("**/login"))
	})

	t.Run("api accepts basic auth", func(t *testing.T) {
		client := &http.Client{Timeout: 5 * time.Second}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, authBaseURL+"/api/v1/catalog", http.NoBody)
		require.NoError(t, err)
		req.Header.Set("Accept", "application/json")
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		req.SetBasicAuth("mockstudio", testPassword)
		resp, err = client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

// submitPassword fills and submits the login form
func submitPassword(t *testing.T, page playwright.Page, password string) {
	t.Helper()
	_, err := page.Goto(authBaseURL + "/login")
	require.NoError(t, err)
	require.NoError(t, page.Locator("input[name='password']").Fill(password))
	require.NoError(t, page.Locator("button[type='submit']").Click())
}
