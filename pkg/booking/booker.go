// Package booking automates a parcel-collection booking against a
// carrier portal that exposes no API, only an authenticated HTML form.
// It composes session acquisition, login, consent suppression, form
// filling and submission into JSON-shaped operations, with a screenshot
// captured at every state the operator might need to inspect.
package booking

import (
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/example/pickup-booker/pkg/config"
	"github.com/example/pickup-booker/pkg/logging"
	"github.com/example/pickup-booker/pkg/session"
)

// trackerHosts are third-party endpoints worth blocking: they slow the
// portal down and occasionally wedge the network-idle waits.
var trackerHosts = []string{
	"google-analytics",
	"googletagmanager",
	"facebook.net",
	"doubleclick",
	"hotjar",
	"sentry.io",
}

// ScreenshotOptions configures TakeScreenshot.
type ScreenshotOptions struct {
	Filename string
	FullPage bool
}

// Booker is the orchestrator behind the command surface. It guarantees
// submit/book never run without a prior successful fill; the two-stage
// human confirmation around them is the caller's job.
type Booker struct {
	cfg      *config.Config
	store    *session.Store
	auth     *Authenticator
	filler   *Filler
	pipeline *Pipeline
	log      *logging.Logger
	shotDir  string
	routed   bool
}

// New wires up a Booker from configuration and credentials.
func New(cfg *config.Config, creds config.Credentials) *Booker {
	log, _ := logging.NewLogger("booking")

	store := session.NewStore(session.Options{
		DescriptorPath: cfg.DescriptorPath(),
		ProfileDir:     cfg.Browser.ProfileDir,
		CDPPort:        cfg.Browser.CDPPort,
		Headless:       cfg.Browser.Headless,
		NavTimeout:     time.Duration(cfg.Browser.NavTimeoutSeconds) * time.Second,
	}, log)

	resolver := NewResolver(log)

	return &Booker{
		cfg:      cfg,
		store:    store,
		auth:     NewAuthenticator(cfg, creds, store, resolver, log),
		filler:   NewFiller(cfg, store, resolver, log),
		pipeline: NewPipeline(cfg, store, log),
		log:      log,
		shotDir:  cfg.ScreenshotDir(),
	}
}

// FillForm logs in, navigates to the booking form and fills it,
// returning the review screenshot and resolved state.
func (b *Booker) FillForm(req FormRequest) *FillResult {
	loc := b.location()
	req.ApplyDefaults(time.Now(), loc)

	page, err := b.store.Acquire()
	if err != nil {
		return &FillResult{Error: "session_unavailable", Message: err.Error()}
	}
	b.blockTrackers(page)

	// Login runs unconditionally; an already-authenticated session is a
	// trivial success.
	if err := b.auth.Login(page); err != nil {
		b.log.Errorf("login failed: %v", err)
		return &FillResult{
			Error:      errorKind(err),
			Message:    err.Error(),
			Screenshot: errorScreenshot(err),
		}
	}

	if err := b.navigateToForm(page); err != nil {
		shot := captureScreenshot(page, b.shotDir, "form-nav-failed", true, b.log)
		return &FillResult{Error: "navigation_failed", Message: err.Error(), Screenshot: shot}
	}

	state, shot, err := b.filler.Fill(page, req)
	if err != nil {
		b.log.Errorf("fill failed: %v", err)
		return &FillResult{
			Error:      errorKind(err),
			Message:    err.Error(),
			Screenshot: errorScreenshot(err),
		}
	}

	return &FillResult{
		Success:    true,
		Message:    "form filled, review the screenshot before submitting",
		Screenshot: shot,
		FormState:  state,
	}
}

// Submit drives the review → submit → confirmation pipeline. It fails
// before touching the page when no successful fill is recorded.
func (b *Booker) Submit() *SubmitResult {
	if err := b.pipeline.Precheck(); err != nil {
		return &SubmitResult{Error: errorKind(err), Message: err.Error()}
	}

	page, err := b.store.Acquire()
	if err != nil {
		return &SubmitResult{Error: "session_unavailable", Message: err.Error()}
	}

	outcome, err := b.pipeline.Run(page)
	if err != nil {
		b.log.Errorf("submission failed: %v", err)
		return &SubmitResult{
			Error:      errorKind(err),
			Message:    err.Error(),
			Screenshot: errorScreenshot(err),
		}
	}

	return &SubmitResult{
		Success:          true,
		Screenshot:       outcome.ConfirmationScreenshot,
		ReviewScreenshot: outcome.ReviewScreenshot,
		Confirmation:     outcome.Confirmation,
	}
}

// Book runs fill and submit against the same page, end to end.
func (b *Booker) Book(req FormRequest) *BookResult {
	fill := b.FillForm(req)
	if !fill.Success {
		return composeBookResult(fill, nil)
	}
	return composeBookResult(fill, b.Submit())
}

// composeBookResult merges the two legs into one result. Every
// screenshot either leg captured must survive the merge; a failed
// submit's screenshot is the only view of the page state at failure.
func composeBookResult(fill *FillResult, sub *SubmitResult) *BookResult {
	if !fill.Success {
		return &BookResult{
			Error:          fill.Error,
			Message:        fill.Message,
			FillScreenshot: fill.Screenshot,
		}
	}

	if !sub.Success {
		return &BookResult{
			Error:            sub.Error,
			Message:          sub.Message,
			Screenshot:       sub.Screenshot,
			FillScreenshot:   fill.Screenshot,
			ReviewScreenshot: sub.ReviewScreenshot,
			FormState:        fill.FormState,
		}
	}

	return &BookResult{
		Success:                true,
		FillScreenshot:         fill.Screenshot,
		ReviewScreenshot:       sub.ReviewScreenshot,
		ConfirmationScreenshot: sub.Screenshot,
		FormState:              fill.FormState,
		Confirmation:           sub.Confirmation,
	}
}

// TakeScreenshot captures the current page state on demand.
func (b *Booker) TakeScreenshot(opts ScreenshotOptions) *ScreenshotResult {
	page, err := b.store.Acquire()
	if err != nil {
		return &ScreenshotResult{Error: "session_unavailable", Message: err.Error()}
	}

	shot := captureScreenshot(page, b.shotDir, opts.Filename, opts.FullPage, b.log)
	if shot == "" {
		return &ScreenshotResult{Error: "screenshot_failed", Message: "could not capture page"}
	}
	return &ScreenshotResult{Success: true, Screenshot: shot}
}

// Reset tears down the live session and its descriptor. Idempotent:
// resetting with nothing active is still a success.
func (b *Booker) Reset() *ResetResult {
	if err := b.store.Teardown(); err != nil {
		return &ResetResult{Error: "reset_failed", Message: err.Error()}
	}
	// The next acquired page belongs to a new session and needs its own
	// tracker filter.
	b.routed = false
	return &ResetResult{Success: true, Message: "session cleared"}
}

// Close releases the Playwright driver without destroying the persisted
// session, so a later process can reconnect.
func (b *Booker) Close() {
	if err := b.store.Stop(); err != nil {
		b.log.Warnf("driver shutdown: %v", err)
	}
	_ = b.log.Close()
}

func (b *Booker) navigateToForm(page playwright.Page) error {
	b.log.Infof("navigating to booking form %s", b.cfg.Portal.BookingURL)
	_, err := page.Goto(b.cfg.Portal.BookingURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.cfg.Browser.NavTimeoutSeconds) * 1000),
	})
	if err != nil {
		return err
	}

	_ = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(b.cfg.Browser.NavTimeoutSeconds) * 1000),
	})

	SuppressConsent(page, b.log)
	return nil
}

// blockTrackers aborts requests to known analytics hosts. Installed once
// per live session; Reset clears the flag.
func (b *Booker) blockTrackers(page playwright.Page) {
	if b.routed {
		return
	}
	err := page.Route("**/*", func(route playwright.Route) {
		url := strings.ToLower(route.Request().URL())
		for _, host := range trackerHosts {
			if strings.Contains(url, host) {
				_ = route.Abort("blockedbyclient")
				return
			}
		}
		_ = route.Continue()
	})
	if err != nil {
		b.log.Warnf("failed to install tracker filter: %v", err)
		return
	}
	b.routed = true
}

func (b *Booker) location() *time.Location {
	loc, err := time.LoadLocation(b.cfg.Booking.Timezone)
	if err != nil {
		b.log.Warnf("invalid timezone %q, using local time", b.cfg.Booking.Timezone)
		return time.Local
	}
	return loc
}
