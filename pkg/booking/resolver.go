package booking

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/example/pickup-booker/pkg/logging"
)

// Resolver locates form controls on a page the portal owners are free to
// restructure at any time. Instead of one brittle selector it layers
// independent signals, tried in order per label variant:
//
//  1. accessible-label attribute (case-insensitive substring)
//  2. placeholder text
//  3. rendered <label> text, resolved to its control via the explicit
//     for= association, a nested control, or the nearest following sibling
//  4. name attribute, matched with whitespace stripped from the variant
//
// A miss is a boolean false, never an error: the form filler treats an
// unresolvable field as skipped, not as an aborted operation.
type Resolver struct {
	log *logging.Logger
}

// NewResolver creates an element resolver.
func NewResolver(log *logging.Logger) *Resolver {
	if log == nil {
		log = logging.NewNop()
	}
	return &Resolver{log: log}
}

// FillByLabel fills the first control matching any of the label variants.
// Returns false when no strategy matched any variant.
func (r *Resolver) FillByLabel(page playwright.Page, labels []string, value string) bool {
	for _, label := range labels {
		handle := r.find(page, label)
		if handle == nil {
			continue
		}
		if err := handle.Fill(value); err != nil {
			r.log.Warnf("located field for %q but fill failed: %v", label, err)
			continue
		}
		r.log.Debugf("filled %q", label)
		return true
	}
	return false
}

// SelectByLabel selects an option (by value first, then by option label)
// on the first <select> matching any of the label variants.
func (r *Resolver) SelectByLabel(page playwright.Page, labels []string, value string) bool {
	for _, label := range labels {
		handle := r.find(page, label)
		if handle == nil {
			continue
		}
		if _, err := handle.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}}); err == nil {
			r.log.Debugf("selected %q on %q by value", value, label)
			return true
		}
		if _, err := handle.SelectOption(playwright.SelectOptionValues{Labels: &[]string{value}}); err == nil {
			r.log.Debugf("selected %q on %q by label", value, label)
			return true
		}
		r.log.Warnf("located select for %q but no option matched %q", label, value)
	}
	return false
}

// find runs the strategy chain for one label variant.
func (r *Resolver) find(page playwright.Page, label string) playwright.ElementHandle {
	if handle := r.byAttribute(page, "aria-label", label); handle != nil {
		return handle
	}
	if handle := r.byAttribute(page, "placeholder", label); handle != nil {
		return handle
	}
	if handle := r.byLabelText(page, label); handle != nil {
		return handle
	}
	stripped := strings.ReplaceAll(label, " ", "")
	if handle := r.byAttribute(page, "name", stripped); handle != nil {
		return handle
	}
	return nil
}

// byAttribute matches a form control whose attribute contains the text,
// case-insensitively.
func (r *Resolver) byAttribute(page playwright.Page, attr, text string) playwright.ElementHandle {
	selector := fmt.Sprintf(
		"input[%[1]s*=%[2]q i], textarea[%[1]s*=%[2]q i], select[%[1]s*=%[2]q i]",
		attr, text,
	)
	handle, err := page.QuerySelector(selector)
	if err != nil || handle == nil {
		return nil
	}
	if visible, _ := handle.IsVisible(); !visible {
		return nil
	}
	return handle
}

// byLabelText scans rendered <label> elements for the text and resolves
// the control each one describes.
func (r *Resolver) byLabelText(page playwright.Page, text string) playwright.ElementHandle {
	labels, err := page.QuerySelectorAll("label")
	if err != nil {
		return nil
	}

	want := strings.ToLower(text)
	for _, labelHandle := range labels {
		rendered, err := labelHandle.TextContent()
		if err != nil || !strings.Contains(strings.ToLower(rendered), want) {
			continue
		}

		// Explicit association wins, but only for a visible control.
		if forID, err := labelHandle.GetAttribute("for"); err == nil && forID != "" {
			if handle, err := page.QuerySelector("#" + forID); err == nil && handle != nil {
				if visible, _ := handle.IsVisible(); visible {
					return handle
				}
			}
		}

		// A control nested inside the label.
		if handle, err := labelHandle.QuerySelector("input, select, textarea"); err == nil && handle != nil {
			return handle
		}

		// Nearest following sibling that is (or contains) a control.
		jsHandle, err := labelHandle.EvaluateHandle(`el => {
			let node = el.nextElementSibling;
			while (node) {
				if (node.matches('input, select, textarea')) return node;
				const inner = node.querySelector('input, select, textarea');
				if (inner) return inner;
				node = node.nextElementSibling;
			}
			return null;
		}`)
		if err == nil && jsHandle != nil {
			if handle := jsHandle.AsElement(); handle != nil {
				return handle
			}
		}
	}
	return nil
}
