package booking

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/playwright-community/playwright-go"

	"github.com/example/pickup-booker/pkg/config"
	"github.com/example/pickup-booker/pkg/logging"
	"github.com/example/pickup-booker/pkg/session"
)

// Controls that advance from the filled form to the review page.
var proceedSelectors = []string{
	`button:has-text("Proceed")`,
	`button:has-text("Continue")`,
	`button:has-text("Review")`,
	`button:has-text("Next")`,
	`button[type="submit"]`,
}

// Literal candidates for the final commit control.
var finalSubmitSelectors = []string{
	`button:has-text("Confirm booking")`,
	`button:has-text("Confirm collection")`,
	`button:has-text("Book collection")`,
	`button:has-text("Submit")`,
	`button:has-text("Confirm")`,
	`input[type="submit"]`,
}

// Words the scripted button scan accepts when no literal candidate was
// clickable.
var finalSubmitWords = []string{"confirm", "submit", "book", "place order"}

// scanButtonsScript clicks the first rendered button whose visible text
// contains one of the candidate words. Fallback for portals that render
// the commit control as something selector lookup misses.
const scanButtonsScript = `(words) => {
	const controls = Array.from(document.querySelectorAll('button, input[type="submit"], a[role="button"]'));
	for (const el of controls) {
		const text = ((el.innerText || el.value || '') + '').trim().toLowerCase();
		if (!text) continue;
		if (words.some(w => text.includes(w))) {
			el.click();
			return text;
		}
	}
	return null;
}`

// Ordered extraction patterns for the confirmation page. Absence of a
// match yields a nil field, never an error.
var (
	referencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)confirmation\s+(?:number|no\.?|#)\s*[:\-]?\s*([A-Z0-9][A-Z0-9\-]{4,})`),
		regexp.MustCompile(`(?i)reference\s*(?:number|no\.?|#)?\s*(?:is)?\s*[:\-]?\s*([A-Z0-9][A-Z0-9\-]{4,})`),
		regexp.MustCompile(`(?i)booking\s+(?:number|reference)\s*[:\-]?\s*([A-Z0-9][A-Z0-9\-]{4,})`),
	}
	totalPattern = regexp.MustCompile(`(?i)total(?:\s+charges?)?\s*[:\-]?\s*([£$€]\s?\d+(?:[.,]\d{2})?)`)
	datePattern  = regexp.MustCompile(`(?i)collection\s+date\s*[:\-]?\s*([A-Za-z]*,?\s*\d{1,2}[A-Za-z0-9 ,/\-]*\d{2,4})`)
)

// rawSnippetLimit bounds the confirmation-page text preserved for human
// inspection when structured extraction comes up short.
const rawSnippetLimit = 2000

// PipelineOutcome is the successful result of the submission pipeline.
type PipelineOutcome struct {
	ReviewScreenshot       string
	ConfirmationScreenshot string
	Confirmation           *ConfirmationRecord
}

// Pipeline drives filled → reviewing → submitted → confirmed. Any
// failure transitions to failed with a screenshot; the pipeline is never
// resumed mid-way, a retry must restart from a fresh fill.
type Pipeline struct {
	cfg     *config.Config
	store   *session.Store
	log     *logging.Logger
	shotDir string
}

// NewPipeline creates the submission pipeline.
func NewPipeline(cfg *config.Config, store *session.Store, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		store:   store,
		log:     log,
		shotDir: cfg.ScreenshotDir(),
	}
}

// Precheck enforces the fill-before-submit invariant from the persisted
// descriptor alone, before any page interaction.
func (p *Pipeline) Precheck() error {
	desc, err := p.store.Current()
	if err != nil || desc == nil {
		return newError(ErrKindPrecondition, "precheck", "",
			fmt.Errorf("no session descriptor: submit requires a prior successful fill"))
	}
	if !desc.FormFilled {
		return newError(ErrKindPrecondition, "precheck", "",
			fmt.Errorf("form has not been filled in this session"))
	}
	return nil
}

// Run executes the pipeline on the given page. Precheck runs first and
// touches no page state when it fails.
func (p *Pipeline) Run(page playwright.Page) (*PipelineOutcome, error) {
	if err := p.Precheck(); err != nil {
		return nil, err
	}

	// Arm the single-shot: from here on a repeated submit must fail the
	// precheck rather than risk a duplicate booking.
	if err := p.store.Apply(session.Update{FormFilled: session.Bool(false)}); err != nil {
		return nil, newError(ErrKindSubmissionStep, "arm", "", err)
	}

	navTimeout := float64(p.cfg.Browser.NavTimeoutSeconds) * 1000

	// Filled → Reviewing.
	if err := p.clickFirstVisible(page, proceedSelectors); err != nil {
		shot := captureScreenshot(page, p.shotDir, "submit-review-failed", true, p.log)
		return nil, newError(ErrKindSubmissionStep, "review", shot, err)
	}
	p.waitForIdle(page, navTimeout)
	reviewShot := captureScreenshot(page, p.shotDir, "review", true, p.log)
	p.log.Infof("reached review step")

	// Reviewing → Submitted.
	if err := p.clickFinalSubmit(page); err != nil {
		shot := captureScreenshot(page, p.shotDir, "submit-commit-failed", true, p.log)
		return nil, newError(ErrKindSubmissionStep, "commit", shot, err)
	}
	p.waitForIdle(page, navTimeout)
	confirmationShot := captureScreenshot(page, p.shotDir, "confirmation", true, p.log)
	p.log.Infof("submission committed")

	// Submitted → Confirmed.
	text, err := page.InnerText("body")
	if err != nil {
		text = ""
		p.log.Warnf("failed to read confirmation page text: %v", err)
	}
	record := ExtractConfirmation(text)
	if record.Reference != nil {
		p.log.Infof("confirmation reference %s", *record.Reference)
	} else {
		p.log.Warnf("no confirmation reference extracted, raw text preserved")
	}

	return &PipelineOutcome{
		ReviewScreenshot:       reviewShot,
		ConfirmationScreenshot: confirmationShot,
		Confirmation:           record,
	}, nil
}

func (p *Pipeline) clickFirstVisible(page playwright.Page, selectors []string) error {
	for _, selector := range selectors {
		handle, err := page.QuerySelector(selector)
		if err != nil || handle == nil {
			continue
		}
		if visible, _ := handle.IsVisible(); !visible {
			continue
		}
		if err := handle.Click(); err == nil {
			p.log.Debugf("clicked %s", selector)
			return nil
		}
	}
	return fmt.Errorf("no clickable control among %d candidates", len(selectors))
}

// clickFinalSubmit tries the literal candidates, then falls back to a
// scripted scan over all rendered buttons.
func (p *Pipeline) clickFinalSubmit(page playwright.Page) error {
	if err := p.clickFirstVisible(page, finalSubmitSelectors); err == nil {
		return nil
	}

	clicked, err := page.Evaluate(scanButtonsScript, finalSubmitWords)
	if err != nil {
		return fmt.Errorf("button scan failed: %w", err)
	}
	if clicked == nil {
		return fmt.Errorf("no final submit control found")
	}
	p.log.Debugf("clicked scanned button %q", clicked)
	return nil
}

// waitForIdle waits for the network to settle after a transition. Best
// effort: a chatty page that never goes idle only costs the timeout.
func (p *Pipeline) waitForIdle(page playwright.Page, timeoutMillis float64) {
	err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(timeoutMillis),
	})
	if err != nil {
		p.log.Debugf("network idle wait elapsed: %v", err)
	}
}

// ExtractConfirmation parses a ConfirmationRecord out of rendered page
// text. Partial extraction is a valid terminal state: each field is nil
// when no pattern matched, and a bounded raw snippet is kept for human
// inspection.
func ExtractConfirmation(text string) *ConfirmationRecord {
	record := &ConfirmationRecord{}

	for _, pattern := range referencePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			ref := strings.TrimSpace(m[1])
			record.Reference = &ref
			break
		}
	}

	if m := totalPattern.FindStringSubmatch(text); m != nil {
		total := strings.TrimSpace(m[1])
		record.TotalCharge = &total
	}

	if m := datePattern.FindStringSubmatch(text); m != nil {
		date := strings.TrimSpace(m[1])
		record.CollectionDate = &date
	}

	snippet := strings.TrimSpace(text)
	if len(snippet) > rawSnippetLimit {
		// Cut on a rune boundary so the snippet stays valid UTF-8.
		cut := rawSnippetLimit
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}
	record.RawText = snippet

	return record
}
