package booking

import (
	"github.com/playwright-community/playwright-go"

	"github.com/example/pickup-booker/pkg/logging"
)

// removeOverlaysScript tears down cookie/consent overlays directly.
// Fast and unconditional; running it on a page without a banner is a
// no-op.
const removeOverlaysScript = `() => {
	const selectors = [
		'#onetrust-consent-sdk',
		'[id*="cookie" i][role="dialog"]',
		'[class*="cookie-banner" i]',
		'[class*="cookie-consent" i]',
		'[class*="consent-modal" i]',
		'.modal-backdrop',
		'[class*="overlay" i][class*="consent" i]',
	];
	let removed = 0;
	for (const sel of selectors) {
		for (const el of document.querySelectorAll(sel)) {
			el.remove();
			removed++;
		}
	}
	if (document.body) {
		document.body.style.overflow = 'auto';
	}
	return removed;
}`

// acceptSelectors are known "accept" controls, most specific first.
var acceptSelectors = []string{
	"#onetrust-accept-btn-handler",
	"button#accept-recommended-btn-handler",
	`button:has-text("Accept all")`,
	`button:has-text("Accept cookies")`,
	`button:has-text("Accept")`,
	`button:has-text("Allow all")`,
	`button:has-text("I agree")`,
	`button:has-text("Got it")`,
}

const consentClickTimeoutMillis = 2000

// SuppressConsent removes or dismisses consent overlays blocking
// interaction. Best effort and idempotent: zero matches is silence, not
// failure, and each attempt is bounded so an odd page cannot wedge the
// flow. Call after every navigation that might present a banner.
func SuppressConsent(page playwright.Page, log *logging.Logger) {
	if log == nil {
		log = logging.NewNop()
	}

	if removed, err := page.Evaluate(removeOverlaysScript); err == nil {
		if n, ok := removed.(int); ok && n > 0 {
			log.Debugf("removed %d overlay element(s)", n)
		}
	}

	for _, selector := range acceptSelectors {
		handle, err := page.QuerySelector(selector)
		if err != nil || handle == nil {
			continue
		}
		if visible, _ := handle.IsVisible(); !visible {
			continue
		}
		err = handle.Click(playwright.ElementHandleClickOptions{
			Timeout: playwright.Float(consentClickTimeoutMillis),
		})
		if err == nil {
			log.Debugf("dismissed consent banner via %s", selector)
			return
		}
	}
}
