// Package session owns the persisted browser session: launching a
// persistent Chromium profile, reconnecting to it from a new process via
// its CDP endpoint, and tracking booking progress in an on-disk
// descriptor. The descriptor file and the profile directory are the only
// shared mutable state in the system; a single writer is assumed.
package session

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/example/pickup-booker/pkg/logging"
)

// Options configures a Store.
type Options struct {
	// DescriptorPath is the session descriptor file.
	DescriptorPath string

	// ProfileDir is the persistent browser profile directory.
	ProfileDir string

	// CDPPort is the remote debugging port for fresh launches.
	CDPPort int

	Headless bool

	// NavTimeout is the default timeout applied to page operations.
	NavTimeout time.Duration
}

// Store manages at most one live browser session per process.
//
// Acquire prefers reconnecting to a previously persisted session; any
// reconnection failure is treated as "no session" and falls through to a
// fresh launch, because a cold start is always a valid fallback.
type Store struct {
	mu   sync.Mutex
	opts Options
	log  *logging.Logger

	pw         *playwright.Playwright
	browser    playwright.Browser        // set when reconnected over CDP
	browserCtx playwright.BrowserContext // set when freshly launched
	page       playwright.Page
}

// Chromium profile lock artifacts left behind by an unclean shutdown.
// A fresh launch removes them or Chromium refuses to start.
var profileLockFiles = []string{"SingletonLock", "SingletonCookie", "SingletonSocket", "lockfile"}

// NewStore creates a session store. No browser is started until Acquire.
func NewStore(opts Options, log *logging.Logger) *Store {
	if log == nil {
		log = logging.NewNop()
	}
	return &Store{opts: opts, log: log}
}

// Acquire returns a live page, reconnecting to a persisted session when
// possible and launching a fresh browser otherwise.
func (s *Store) Acquire() (playwright.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		return s.page, nil
	}

	if err := s.ensurePlaywright(); err != nil {
		return nil, err
	}

	if page := s.reconnect(); page != nil {
		s.page = page
		return page, nil
	}

	page, err := s.launchFresh()
	if err != nil {
		return nil, err
	}
	s.page = page
	return page, nil
}

// ensurePlaywright installs and starts the Playwright driver once.
// Output is discarded so driver installation noise never reaches stdout,
// which carries the JSON results.
func (s *Store) ensurePlaywright() error {
	if s.pw != nil {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	s.pw = pw
	return nil
}

// reconnect attempts to attach to the browser described by the persisted
// descriptor. Every failure path discards the stale descriptor and
// returns nil; reconnection errors are never propagated.
func (s *Store) reconnect() playwright.Page {
	desc, err := s.loadDescriptor()
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnf("discarding unreadable session descriptor: %v", err)
			s.discardDescriptor()
		}
		return nil
	}
	if desc.CDPEndpoint == "" {
		s.discardDescriptor()
		return nil
	}

	s.log.Infof("reconnecting to browser at %s", desc.CDPEndpoint)

	browser, err := s.pw.Chromium.ConnectOverCDP(desc.CDPEndpoint, playwright.BrowserTypeConnectOverCDPOptions{
		Timeout: playwright.Float(5000),
	})
	if err != nil {
		s.log.Warnf("reconnection failed, falling back to fresh launch: %v", err)
		s.discardDescriptor()
		return nil
	}

	page := firstPage(browser.Contexts())
	if page == nil {
		// Connected, but the browser has no usable page left.
		_ = browser.Close()
		s.log.Warnf("reconnected browser had no pages, falling back to fresh launch")
		s.discardDescriptor()
		return nil
	}

	page.SetDefaultTimeout(s.navTimeoutMillis())
	s.browser = browser
	s.log.Infof("reconnected to existing session (loggedIn=%v formFilled=%v)", desc.LoggedIn, desc.FormFilled)
	return page
}

func firstPage(contexts []playwright.BrowserContext) playwright.Page {
	for _, ctx := range contexts {
		for _, page := range ctx.Pages() {
			if !strings.HasPrefix(page.URL(), "devtools://") {
				return page
			}
		}
	}
	return nil
}

// launchFresh starts a new persistent-profile browser and persists a new
// descriptor with all progress flags cleared.
func (s *Store) launchFresh() (playwright.Page, error) {
	if err := os.MkdirAll(s.opts.ProfileDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	s.clearProfileLocks()

	s.log.Infof("launching fresh browser (headless=%v, cdp port %d)", s.opts.Headless, s.opts.CDPPort)

	ctx, err := s.pw.Chromium.LaunchPersistentContext(s.opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(s.opts.Headless),
		Viewport: &playwright.Size{Width: 1280, Height: 900},
		Args: []string{
			fmt.Sprintf("--remote-debugging-port=%d", s.opts.CDPPort),
			"--disable-blink-features=AutomationControlled",
			"--no-first-run",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	var page playwright.Page
	if pages := ctx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = ctx.NewPage()
		if err != nil {
			_ = ctx.Close()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	page.SetDefaultTimeout(s.navTimeoutMillis())

	now := time.Now()
	desc := &Descriptor{
		CDPEndpoint: fmt.Sprintf("http://127.0.0.1:%d", s.opts.CDPPort),
		CreatedAt:   now,
		UpdatedAt:   now,
		LoggedIn:    false,
		FormFilled:  false,
	}
	if err := s.saveDescriptor(desc); err != nil {
		_ = ctx.Close()
		return nil, err
	}

	s.browserCtx = ctx
	return page, nil
}

// clearProfileLocks removes Chromium singleton lock artifacts left by a
// prior unclean shutdown.
func (s *Store) clearProfileLocks() {
	for _, name := range profileLockFiles {
		path := filepath.Join(s.opts.ProfileDir, name)
		if err := os.Remove(path); err == nil {
			s.log.Debugf("removed stale profile lock %s", name)
		}
	}
}

// Current returns the persisted descriptor.
func (s *Store) Current() (*Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadDescriptor()
}

// Apply merges the partial update into the on-disk descriptor and writes
// it back as a whole-file overwrite.
func (s *Store) Apply(u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	desc, err := s.loadDescriptor()
	if err != nil {
		return fmt.Errorf("no session descriptor to update: %w", err)
	}

	if u.LoggedIn != nil {
		desc.LoggedIn = *u.LoggedIn
	}
	if u.FormFilled != nil {
		desc.FormFilled = *u.FormFilled
	}
	desc.UpdatedAt = time.Now()

	return s.saveDescriptor(desc)
}

// Teardown closes the live browser (if any) and deletes the descriptor.
// It succeeds when no session is active: reset must always be safe.
func (s *Store) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browserCtx != nil {
		_ = s.browserCtx.Close()
		s.browserCtx = nil
	}
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}

	s.discardDescriptor()
	return nil
}

// Stop shuts down the Playwright driver. Teardown should be called first
// when the session itself must be destroyed.
func (s *Store) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pw == nil {
		return nil
	}
	err := s.pw.Stop()
	s.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

func (s *Store) loadDescriptor() (*Descriptor, error) {
	data, err := os.ReadFile(s.opts.DescriptorPath)
	if err != nil {
		return nil, err
	}

	desc := &Descriptor{}
	if err := json.Unmarshal(data, desc); err != nil {
		return nil, fmt.Errorf("malformed session descriptor: %w", err)
	}
	return desc, nil
}

func (s *Store) saveDescriptor(desc *Descriptor) error {
	if err := os.MkdirAll(filepath.Dir(s.opts.DescriptorPath), 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session descriptor: %w", err)
	}

	if err := os.WriteFile(s.opts.DescriptorPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session descriptor: %w", err)
	}
	return nil
}

func (s *Store) discardDescriptor() {
	if err := os.Remove(s.opts.DescriptorPath); err != nil && !os.IsNotExist(err) {
		s.log.Warnf("failed to remove session descriptor: %v", err)
	}
}

func (s *Store) navTimeoutMillis() float64 {
	if s.opts.NavTimeout <= 0 {
		return 30000
	}
	return float64(s.opts.NavTimeout.Milliseconds())
}
