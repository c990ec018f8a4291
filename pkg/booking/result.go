package booking

import "errors"

// Results are the JSON-shaped outcomes handed to the command surface.
// Success=true results carry data and screenshots; failures carry an
// error discriminator, a message, and whatever screenshots existed when
// the failure happened.

// FillResult is the outcome of FillForm.
type FillResult struct {
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	Message    string     `json:"message,omitempty"`
	Screenshot string     `json:"screenshot,omitempty"`
	FormState  *FormState `json:"formState,omitempty"`
}

// SubmitResult is the outcome of Submit.
type SubmitResult struct {
	Success          bool                `json:"success"`
	Error            string              `json:"error,omitempty"`
	Message          string              `json:"message,omitempty"`
	Screenshot       string              `json:"screenshot,omitempty"`
	ReviewScreenshot string              `json:"reviewScreenshot,omitempty"`
	Confirmation     *ConfirmationRecord `json:"confirmation,omitempty"`
}

// BookResult is the outcome of Book (fill + submit on one page).
// Screenshot is only set on submit-stage failures and points at the
// page state when the pipeline stopped.
type BookResult struct {
	Success                bool                `json:"success"`
	Error                  string              `json:"error,omitempty"`
	Message                string              `json:"message,omitempty"`
	Screenshot             string              `json:"screenshot,omitempty"`
	FillScreenshot         string              `json:"fillScreenshot,omitempty"`
	ReviewScreenshot       string              `json:"reviewScreenshot,omitempty"`
	ConfirmationScreenshot string              `json:"confirmationScreenshot,omitempty"`
	FormState              *FormState          `json:"formState,omitempty"`
	Confirmation           *ConfirmationRecord `json:"confirmation,omitempty"`
}

// ScreenshotResult is the outcome of TakeScreenshot.
type ScreenshotResult struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// ResetResult is the outcome of Reset.
type ResetResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// errorKind extracts the machine-readable discriminator from a booking
// failure, falling back to a generic label.
func errorKind(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return string(be.Kind)
	}
	return "operation_failed"
}

// errorScreenshot extracts the screenshot captured at failure time, if
// a page state existed.
func errorScreenshot(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Screenshot
	}
	return ""
}
