package booking

import (
	"fmt"
	"time"
)

// FormRequest carries the caller-supplied booking parameters. Zero
// values are filled in by ApplyDefaults before the form is touched.
type FormRequest struct {
	// Date is the requested collection day. Zero means the smart
	// default computed from the current local time.
	Date time.Time `json:"date,omitempty"`

	// Packages is the number of parcels to collect.
	Packages int `json:"packages"`

	// WeightKg is the total weight in kilograms.
	WeightKg int `json:"weightKg"`

	// EarliestTime and LatestTime bound the collection window, HH:MM.
	EarliestTime string `json:"earliestTime"`
	LatestTime   string `json:"latestTime"`

	// DoorCode, when set and Instructions is empty, is rendered into
	// the special-instructions field as "Door code * <code> #".
	DoorCode string `json:"doorCode,omitempty"`

	// Instructions is free-text for the driver. It always overrides a
	// supplied door code.
	Instructions string `json:"instructions,omitempty"`
}

// ApplyDefaults fills unset request fields with the configured defaults
// and the scheduler heuristics.
func (r *FormRequest) ApplyDefaults(now time.Time, loc *time.Location) {
	if r.Packages <= 0 {
		r.Packages = 1
	}
	if r.WeightKg <= 0 {
		r.WeightKg = 10
	}
	if r.EarliestTime == "" {
		r.EarliestTime = SmartEarliestTime(now, loc)
	}
	if r.LatestTime == "" {
		r.LatestTime = "18:00"
	}
	if r.Date.IsZero() {
		r.Date = SmartDate(now, loc)
	}
}

// SpecialInstructions resolves the rendered special-instructions text.
// Exactly one of {explicit instructions, door code, nothing} wins.
func (r *FormRequest) SpecialInstructions() string {
	if r.Instructions != "" {
		return r.Instructions
	}
	if r.DoorCode != "" {
		return fmt.Sprintf("Door code * %s #", r.DoorCode)
	}
	return ""
}

// FormState is the resolved state after filling, shown to the caller for
// confirmation. It mirrors the request plus the fixed origin address.
type FormState struct {
	Company    string `json:"company"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`

	Phone             string `json:"phone"`
	NotificationEmail string `json:"notificationEmail"`

	Date                string `json:"date"`
	Packages            int    `json:"packages"`
	WeightKg            int    `json:"weightKg"`
	EarliestTime        string `json:"earliestTime"`
	LatestTime          string `json:"latestTime"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
	Location            string `json:"location,omitempty"`

	// SkippedFields lists fields the resolver could not locate. A
	// partial fill is a degraded-but-accepted outcome; the reviewer
	// checks these against the screenshot before authorizing submit.
	SkippedFields []string `json:"skippedFields,omitempty"`
}

// ConfirmationRecord is the best-effort parse of the post-submission
// page. Nil fields mean extraction failed for that field; RawText is the
// human fallback.
type ConfirmationRecord struct {
	Reference      *string `json:"reference"`
	TotalCharge    *string `json:"totalCharge"`
	CollectionDate *string `json:"collectionDate"`
	RawText        string  `json:"rawText,omitempty"`
}
