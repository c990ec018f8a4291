package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/example/pickup-booker/pkg/config"
	"github.com/example/pickup-booker/pkg/logging"
	"github.com/example/pickup-booker/pkg/session"
)

// Identity-field variants for the two login steps. The portal's identity
// provider renders the username step and the password step as separate
// pages.
var (
	usernameLabels = []string{"email", "e-mail", "username", "user id"}
	passwordLabels = []string{"password"}
)

// Controls that advance the login flow, most specific first.
var continueSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`button:has-text("Continue")`,
	`button:has-text("Next")`,
	`button:has-text("Log in")`,
	`button:has-text("Sign in")`,
}

// Authenticator drives the two-step portal login:
// anonymous page → username entered → password entered → authenticated.
//
// Login is invoked on every fill, unconditionally. The portal may keep
// the session alive and show no login form at all, so "already past the
// login step" is treated as trivially successful rather than as a
// missing-field failure.
type Authenticator struct {
	cfg     *config.Config
	creds   config.Credentials
	store   *session.Store
	resolve *Resolver
	log     *logging.Logger
	shotDir string
}

// NewAuthenticator creates the login driver.
func NewAuthenticator(cfg *config.Config, creds config.Credentials, store *session.Store, resolve *Resolver, log *logging.Logger) *Authenticator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Authenticator{
		cfg:     cfg,
		creds:   creds,
		store:   store,
		resolve: resolve,
		log:     log,
		shotDir: cfg.ScreenshotDir(),
	}
}

// Login takes the page through the login flow and persists loggedIn=true
// on success. Idempotent for an already-authenticated session.
func (a *Authenticator) Login(page playwright.Page) error {
	navTimeout := float64(a.cfg.Browser.NavTimeoutSeconds) * 1000

	a.log.Infof("navigating to login page %s", a.cfg.Portal.LoginURL)
	if _, err := page.Goto(a.cfg.Portal.LoginURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(navTimeout),
	}); err != nil {
		shot := captureScreenshot(page, a.shotDir, "login-nav-failed", true, a.log)
		return newError(ErrKindLoginTimeout, "navigate", shot, err)
	}

	// Let redirects and late scripts settle; a login page that stays
	// busy should not block the flow forever.
	_ = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(navTimeout),
	})

	SuppressConsent(page, a.log)

	if a.alreadyAuthenticated(page) {
		a.log.Infof("session already authenticated, skipping login")
		return a.persistLoggedIn()
	}

	// Step 1: username.
	if !a.resolve.FillByLabel(page, usernameLabels, a.creds.Username) {
		if a.alreadyAuthenticated(page) {
			return a.persistLoggedIn()
		}
		shot := captureScreenshot(page, a.shotDir, "login-no-username-field", true, a.log)
		return newError(ErrKindAuthFieldNotFound, "username", shot,
			fmt.Errorf("no username field matched %v", usernameLabels))
	}
	a.clickContinue(page)

	// Step 2: password. A longer wait: the identity provider may need a
	// round trip before rendering it.
	passwordHandle, err := page.WaitForSelector(`input[type="password"]`, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(navTimeout * 2),
	})
	if err != nil || passwordHandle == nil {
		if !a.resolve.FillByLabel(page, passwordLabels, a.creds.Password) {
			shot := captureScreenshot(page, a.shotDir, "login-no-password-field", true, a.log)
			return newError(ErrKindAuthFieldNotFound, "password", shot,
				fmt.Errorf("no password field appeared: %w", err))
		}
	} else if err := passwordHandle.Fill(a.creds.Password); err != nil {
		shot := captureScreenshot(page, a.shotDir, "login-password-fill-failed", true, a.log)
		return newError(ErrKindAuthFieldNotFound, "password", shot, err)
	}
	a.clickContinue(page)

	// Step 3: race the two success conditions.
	if err := a.waitForAuthenticated(page); err != nil {
		shot := captureScreenshot(page, a.shotDir, "login-timeout", true, a.log)
		return newError(ErrKindLoginTimeout, "login-wait", shot, err)
	}

	a.log.Infof("login succeeded, now at %s", page.URL())
	return a.persistLoggedIn()
}

// alreadyAuthenticated reports whether the page is past the login step:
// either the URL already sits on the application domain or the logged-in
// marker is visible.
func (a *Authenticator) alreadyAuthenticated(page playwright.Page) bool {
	if strings.Contains(page.URL(), a.cfg.Portal.AppDomain) {
		return true
	}
	if a.cfg.Portal.LoggedInSelector == "" {
		return false
	}
	handle, err := page.QuerySelector(a.cfg.Portal.LoggedInSelector)
	if err != nil || handle == nil {
		return false
	}
	visible, _ := handle.IsVisible()
	return visible
}

// clickContinue clicks the first visible control that advances the
// flow. Best effort: some portals submit on Enter and render no button.
func (a *Authenticator) clickContinue(page playwright.Page) {
	for _, selector := range continueSelectors {
		handle, err := page.QuerySelector(selector)
		if err != nil || handle == nil {
			continue
		}
		if visible, _ := handle.IsVisible(); !visible {
			continue
		}
		if err := handle.Click(); err == nil {
			return
		}
	}
	a.log.Warnf("no continue control found, relying on form auto-submit")
}

// waitForAuthenticated races reaching the application domain against the
// logged-in UI marker appearing; whichever resolves first wins. Both
// timing out is a login failure.
func (a *Authenticator) waitForAuthenticated(page playwright.Page) error {
	timeout := float64(a.cfg.Browser.LoginTimeoutSeconds) * 1000

	conditions := 1
	results := make(chan error, 2)

	go func() {
		results <- page.WaitForURL(fmt.Sprintf("**%s**", a.cfg.Portal.AppDomain), playwright.PageWaitForURLOptions{
			Timeout: playwright.Float(timeout),
		})
	}()

	if a.cfg.Portal.LoggedInSelector != "" {
		conditions = 2
		go func() {
			_, err := page.WaitForSelector(a.cfg.Portal.LoggedInSelector, playwright.PageWaitForSelectorOptions{
				State:   playwright.WaitForSelectorStateVisible,
				Timeout: playwright.Float(timeout),
			})
			results <- err
		}()
	}

	var lastErr error
	for i := 0; i < conditions; i++ {
		err := <-results
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("no login success condition resolved within %s: %w",
		time.Duration(a.cfg.Browser.LoginTimeoutSeconds)*time.Second, lastErr)
}

func (a *Authenticator) persistLoggedIn() error {
	if err := a.store.Apply(session.Update{LoggedIn: session.Bool(true)}); err != nil {
		// The login itself worked; a descriptor write failure only
		// degrades reconnection, it must not fail the operation.
		a.log.Warnf("failed to persist loggedIn flag: %v", err)
	}
	return nil
}
