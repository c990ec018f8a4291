package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/example/pickup-booker/pkg/config"
	"github.com/example/pickup-booker/pkg/logging"
	"github.com/example/pickup-booker/pkg/session"
)

// Label synonym sets for the known field inventory. The portal renames
// fields between UI revisions; each list is ordered from the currently
// rendered name to older or plausible alternates.
var (
	companyLabels      = []string{"company", "company name", "business name"}
	addressLabels      = []string{"address line 1", "address", "street"}
	cityLabels         = []string{"city", "town"}
	postalCodeLabels   = []string{"postcode", "postal code", "zip"}
	phoneLabels        = []string{"telephone", "phone", "contact number"}
	packagesLabels     = []string{"number of packages", "packages", "parcel count", "quantity"}
	weightLabels       = []string{"total weight", "weight"}
	instructionsLabels = []string{"special instructions", "driver instructions", "instructions", "notes"}
	emailLabels        = []string{"notification email", "email notification", "confirmation email", "email"}
	locationLabels     = []string{"collection location", "pickup location", "location"}
	dateLabels         = []string{"collection date", "pickup date", "date"}
	earliestLabels     = []string{"earliest time", "earliest collection", "ready from", "from"}
	latestLabels       = []string{"latest time", "latest collection", "until", "to"}
)

// Direct selectors for the "different collection address" option, tried
// before the label-text scan.
var differentAddressSelectors = []string{
	`input[type="radio"][value*="different" i]`,
	`input[type="radio"][id*="different" i]`,
	`input[type="radio"][name*="addressOption" i]`,
	`input[type="checkbox"][id*="differentAddress" i]`,
}

// Filler drives the booking form to a reviewed, screenshot-backed state.
type Filler struct {
	cfg     *config.Config
	store   *session.Store
	resolve *Resolver
	log     *logging.Logger
	shotDir string
}

// NewFiller creates the form filler.
func NewFiller(cfg *config.Config, store *session.Store, resolve *Resolver, log *logging.Logger) *Filler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Filler{
		cfg:     cfg,
		store:   store,
		resolve: resolve,
		log:     log,
		shotDir: cfg.ScreenshotDir(),
	}
}

// Fill populates the booking form from the request. Individual field
// misses are skipped and reported in FormState.SkippedFields; only the
// different-address step is structural and aborts the fill, because its
// silent failure books a collection from the wrong address with no
// visible error.
//
// Returns the resolved FormState and the review screenshot path.
func (f *Filler) Fill(page playwright.Page, req FormRequest) (*FormState, string, error) {
	state := &FormState{
		Company:             f.cfg.Origin.Company,
		Address:             f.cfg.Origin.Address,
		City:                f.cfg.Origin.City,
		PostalCode:          f.cfg.Origin.PostalCode,
		Phone:               f.cfg.Contact.Phone,
		NotificationEmail:   f.cfg.Contact.NotificationEmail,
		Date:                req.Date.Format("2006-01-02"),
		Packages:            req.Packages,
		WeightKg:            req.WeightKg,
		EarliestTime:        req.EarliestTime,
		LatestTime:          req.LatestTime,
		SpecialInstructions: req.SpecialInstructions(),
		Location:            f.cfg.Booking.Location,
	}

	if err := f.selectDifferentAddress(page); err != nil {
		shot := captureScreenshot(page, f.shotDir, "fill-address-option-failed", true, f.log)
		return nil, shot, newError(ErrKindStructuralFill, "address-option", shot, err)
	}

	fill := func(name string, labels []string, value string) {
		if value == "" {
			return
		}
		if !f.resolve.FillByLabel(page, labels, value) {
			f.log.Warnf("field %q not resolved, skipping", name)
			state.SkippedFields = append(state.SkippedFields, name)
		}
	}

	fill("company", companyLabels, f.cfg.Origin.Company)
	fill("address", addressLabels, f.cfg.Origin.Address)
	fill("city", cityLabels, f.cfg.Origin.City)
	fill("postalCode", postalCodeLabels, f.cfg.Origin.PostalCode)
	fill("phone", phoneLabels, f.cfg.Contact.Phone)
	fill("packages", packagesLabels, strconv.Itoa(req.Packages))
	fill("weight", weightLabels, strconv.Itoa(req.WeightKg))
	fill("instructions", instructionsLabels, req.SpecialInstructions())
	fill("notificationEmail", emailLabels, f.cfg.Contact.NotificationEmail)

	if f.cfg.Booking.Location != "" {
		if !f.resolve.SelectByLabel(page, locationLabels, f.cfg.Booking.Location) {
			f.log.Warnf("collection location not resolved, skipping")
			state.SkippedFields = append(state.SkippedFields, "location")
		}
	}

	if !f.selectDate(page, req.Date) {
		f.log.Warnf("collection date option not resolved, skipping")
		state.SkippedFields = append(state.SkippedFields, "date")
	}

	if !f.selectTime(page, earliestLabels, req.EarliestTime) {
		f.log.Warnf("earliest time not resolved, skipping")
		state.SkippedFields = append(state.SkippedFields, "earliestTime")
	}
	if !f.selectTime(page, latestLabels, req.LatestTime) {
		f.log.Warnf("latest time not resolved, skipping")
		state.SkippedFields = append(state.SkippedFields, "latestTime")
	}

	if err := f.store.Apply(session.Update{FormFilled: session.Bool(true)}); err != nil {
		shot := captureScreenshot(page, f.shotDir, "fill-persist-failed", true, f.log)
		return nil, shot, newError(ErrKindStructuralFill, "persist", shot, err)
	}

	// The screenshot, not the JSON state, is what the human reviews
	// before authorizing submission.
	shot := captureScreenshot(page, f.shotDir, "form-filled", true, f.log)

	f.log.Infof("form filled (%d field(s) skipped)", len(state.SkippedFields))
	return state, shot, nil
}

// selectDifferentAddress selects the "different collection address"
// option. The form defaults to the account address, which is wrong for
// this use case, so failing to select it aborts the whole fill.
func (f *Filler) selectDifferentAddress(page playwright.Page) error {
	for _, selector := range differentAddressSelectors {
		handle, err := page.QuerySelector(selector)
		if err != nil || handle == nil {
			continue
		}
		if err := handle.Click(); err == nil {
			f.log.Debugf("selected different-address option via %s", selector)
			return nil
		}
	}

	// Fallback: scan rendered label text.
	labels, err := page.QuerySelectorAll("label")
	if err != nil {
		return fmt.Errorf("label scan failed: %w", err)
	}
	for _, handle := range labels {
		text, err := handle.TextContent()
		if err != nil {
			continue
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "different") && strings.Contains(lower, "address") {
			if err := handle.Click(); err == nil {
				f.log.Debugf("selected different-address option via label text")
				return nil
			}
		}
	}

	return fmt.Errorf("different-address option not found")
}

// selectDate matches the requested day against the human-readable option
// text the form exposes instead of a structured date input. Full long
// format first, then degrading to day number plus month name.
func (f *Filler) selectDate(page playwright.Page, date time.Time) bool {
	handle := f.findSelect(page, dateLabels)
	if handle == nil {
		return false
	}

	options, err := handle.QuerySelectorAll("option")
	if err != nil || len(options) == 0 {
		return false
	}

	want := date.Format("Monday 2 January 2006")
	wantAlt := date.Format("Monday, 2 January 2006")
	monthName := strings.ToLower(date.Format("January"))
	dayPattern := regexp.MustCompile(`\b` + strconv.Itoa(date.Day()) + `\b`)

	match := func(text string) bool {
		trimmed := strings.TrimSpace(text)
		if strings.EqualFold(trimmed, want) || strings.EqualFold(trimmed, wantAlt) {
			return true
		}
		lower := strings.ToLower(trimmed)
		return strings.Contains(lower, monthName) && dayPattern.MatchString(trimmed)
	}

	for _, option := range options {
		text, err := option.TextContent()
		if err != nil || !match(text) {
			continue
		}
		value, err := option.GetAttribute("value")
		if err != nil || value == "" {
			value = strings.TrimSpace(text)
		}
		if _, err := handle.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}}); err == nil {
			f.log.Debugf("selected date option %q", strings.TrimSpace(text))
			return true
		}
	}
	return false
}

// selectTime picks the option whose text contains the HH:MM value.
func (f *Filler) selectTime(page playwright.Page, labels []string, hhmm string) bool {
	if hhmm == "" {
		return true
	}

	handle := f.findSelect(page, labels)
	if handle == nil {
		return false
	}

	options, err := handle.QuerySelectorAll("option")
	if err == nil {
		for _, option := range options {
			text, err := option.TextContent()
			if err != nil || !strings.Contains(text, hhmm) {
				continue
			}
			value, err := option.GetAttribute("value")
			if err != nil || value == "" {
				value = strings.TrimSpace(text)
			}
			if _, err := handle.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}}); err == nil {
				return true
			}
		}
	}

	_, err = handle.SelectOption(playwright.SelectOptionValues{Labels: &[]string{hhmm}})
	return err == nil
}

// findSelect resolves a <select> by label variants.
func (f *Filler) findSelect(page playwright.Page, labels []string) playwright.ElementHandle {
	for _, label := range labels {
		if handle := f.resolve.find(page, label); handle != nil {
			return handle
		}
	}
	return nil
}
