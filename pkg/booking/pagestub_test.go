package booking

import (
	"errors"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// fakePage is a test double for playwright.Page. The embedded interface
// is nil, so any method without an override panics, which doubles as a
// no-page-interaction assertion in precondition tests.
type fakePage struct {
	playwright.Page

	// selectors maps a selector substring to the handle returned for it.
	selectors map[string]playwright.ElementHandle

	// labels is what QuerySelectorAll("label") returns.
	labels []playwright.ElementHandle

	url string

	evaluated []string
}

func (p *fakePage) URL() string {
	return p.url
}

func (p *fakePage) QuerySelector(selector string, options ...playwright.PageQuerySelectorOptions) (playwright.ElementHandle, error) {
	for key, handle := range p.selectors {
		if strings.Contains(selector, key) {
			return handle, nil
		}
	}
	return nil, nil
}

func (p *fakePage) QuerySelectorAll(selector string) ([]playwright.ElementHandle, error) {
	if selector == "label" {
		return p.labels, nil
	}
	return nil, nil
}

func (p *fakePage) Evaluate(expression string, arg ...interface{}) (interface{}, error) {
	p.evaluated = append(p.evaluated, expression)
	return nil, nil
}

func (p *fakePage) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	return nil, errors.New("fake page has no renderer")
}

// fakeHandle is a test double for playwright.ElementHandle.
type fakeHandle struct {
	playwright.ElementHandle

	visible  bool
	text     string
	attrs    map[string]string
	children map[string]playwright.ElementHandle

	filled   string
	didFill  bool
	clicked  bool
	selected []string
}

func (h *fakeHandle) Fill(value string, options ...playwright.ElementHandleFillOptions) error {
	h.filled = value
	h.didFill = true
	return nil
}

func (h *fakeHandle) Click(options ...playwright.ElementHandleClickOptions) error {
	h.clicked = true
	return nil
}

func (h *fakeHandle) IsVisible() (bool, error) {
	return h.visible, nil
}

func (h *fakeHandle) TextContent() (string, error) {
	return h.text, nil
}

func (h *fakeHandle) GetAttribute(name string) (string, error) {
	return h.attrs[name], nil
}

func (h *fakeHandle) QuerySelector(selector string) (playwright.ElementHandle, error) {
	if child, ok := h.children[selector]; ok {
		return child, nil
	}
	return nil, nil
}

func (h *fakeHandle) QuerySelectorAll(selector string) ([]playwright.ElementHandle, error) {
	var out []playwright.ElementHandle
	if child, ok := h.children[selector]; ok {
		out = append(out, child)
	}
	return out, nil
}

func (h *fakeHandle) EvaluateHandle(expression string, arg ...interface{}) (playwright.JSHandle, error) {
	return nil, nil
}

func (h *fakeHandle) SelectOption(values playwright.SelectOptionValues, options ...playwright.ElementHandleSelectOptionOptions) ([]string, error) {
	if values.Values != nil {
		h.selected = append(h.selected, *values.Values...)
		return *values.Values, nil
	}
	if values.Labels != nil {
		h.selected = append(h.selected, *values.Labels...)
		return *values.Labels, nil
	}
	return nil, errors.New("nothing to select")
}
