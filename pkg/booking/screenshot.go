package booking

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/example/pickup-booker/pkg/logging"
)

// captureScreenshot writes a screenshot of the current page state and
// returns its path. Best effort: on any failure it logs and returns "",
// it never blocks the operation it documents.
func captureScreenshot(page playwright.Page, dir, name string, fullPage bool, log *logging.Logger) string {
	if page == nil {
		return ""
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		log.Warnf("failed to create screenshot directory: %v", err)
		return ""
	}

	if name == "" {
		name = "page"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.png", name, uuid.New().String()[:8]))

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
	})
	if err != nil {
		log.Warnf("screenshot %s failed: %v", name, err)
		return ""
	}

	log.Debugf("captured screenshot %s", path)
	return path
}
