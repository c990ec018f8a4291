package booking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pickup-booker/pkg/logging"
)

// explodingPage panics on any use: embedding a nil playwright.Page means
// every method call dereferences nil. Tests use it to prove an operation
// performed zero page interactions.
type explodingPage struct {
	playwright.Page
}

func TestSubmitPrecondition(t *testing.T) {
	t.Run("unfilled session is rejected before any page interaction", func(t *testing.T) {
		cfg := testConfig(t)
		store := testStore(t, cfg, false)
		pipeline := NewPipeline(cfg, store, logging.NewNop())

		outcome, err := pipeline.Run(&explodingPage{})

		require.Error(t, err)
		assert.Nil(t, outcome)

		var bookingErr *Error
		require.ErrorAs(t, err, &bookingErr)
		assert.Equal(t, ErrKindPrecondition, bookingErr.Kind)
		assert.Empty(t, bookingErr.Screenshot, "no page state existed, so no screenshot")
	})

	t.Run("missing descriptor is rejected the same way", func(t *testing.T) {
		cfg := testConfig(t)
		store := testStore(t, cfg, false)
		require.NoError(t, store.Teardown())

		pipeline := NewPipeline(cfg, store, logging.NewNop())
		_, err := pipeline.Run(&explodingPage{})

		var bookingErr *Error
		require.ErrorAs(t, err, &bookingErr)
		assert.Equal(t, ErrKindPrecondition, bookingErr.Kind)
	})
}

func TestSubmitArmsSingleShotBeforeClicking(t *testing.T) {
	cfg := testConfig(t)
	store := testStore(t, cfg, true)
	pipeline := NewPipeline(cfg, store, logging.NewNop())

	// A page with no clickable proceed control: the pipeline fails at
	// the review transition, after the single-shot was armed.
	page := &fakePage{}

	_, err := pipeline.Run(page)

	var bookingErr *Error
	require.ErrorAs(t, err, &bookingErr)
	assert.Equal(t, ErrKindSubmissionStep, bookingErr.Kind)
	assert.Equal(t, "review", bookingErr.Stage)

	desc, err := store.Current()
	require.NoError(t, err)
	assert.False(t, desc.FormFilled, "a failed pipeline must not be resubmittable")

	// A second submit now fails the precondition without touching the page.
	_, err = pipeline.Run(&explodingPage{})
	require.ErrorAs(t, err, &bookingErr)
	assert.Equal(t, ErrKindPrecondition, bookingErr.Kind)
}

func TestExtractConfirmation(t *testing.T) {
	t.Run("full extraction", func(t *testing.T) {
		text := `Thank you for your booking.
Confirmation number: CP-48213-UK
Collection date: Friday 14 June 2024
Total charges: £12.50
A copy has been emailed to you.`

		record := ExtractConfirmation(text)

		require.NotNil(t, record.Reference)
		assert.Equal(t, "CP-48213-UK", *record.Reference)
		require.NotNil(t, record.TotalCharge)
		assert.Equal(t, "£12.50", *record.TotalCharge)
		require.NotNil(t, record.CollectionDate)
		assert.Equal(t, "Friday 14 June 2024", *record.CollectionDate)
		assert.Contains(t, record.RawText, "Thank you")
	})

	t.Run("reference variant wording", func(t *testing.T) {
		record := ExtractConfirmation("Your reference number is ABC123XYZ for this collection")

		require.NotNil(t, record.Reference)
		assert.Equal(t, "ABC123XYZ", *record.Reference)
	})

	t.Run("partial extraction yields nils, never an error", func(t *testing.T) {
		record := ExtractConfirmation("Something went through but the page shows no details")

		assert.Nil(t, record.Reference)
		assert.Nil(t, record.TotalCharge)
		assert.Nil(t, record.CollectionDate)
		assert.NotEmpty(t, record.RawText)
	})

	t.Run("raw snippet is bounded", func(t *testing.T) {
		record := ExtractConfirmation(strings.Repeat("x", 10*rawSnippetLimit))

		assert.Len(t, record.RawText, rawSnippetLimit)
	})

	t.Run("truncation keeps the snippet valid UTF-8", func(t *testing.T) {
		// A two-byte rune straddles the cut point.
		text := strings.Repeat("x", rawSnippetLimit-1) + strings.Repeat("£", 10)

		record := ExtractConfirmation(text)

		assert.True(t, utf8.ValidString(record.RawText))
		assert.LessOrEqual(t, len(record.RawText), rawSnippetLimit)
		assert.Equal(t, strings.Repeat("x", rawSnippetLimit-1), record.RawText)
	})

	t.Run("euro totals parse too", func(t *testing.T) {
		record := ExtractConfirmation("Total: €9,00")

		require.NotNil(t, record.TotalCharge)
		assert.Equal(t, "€9,00", *record.TotalCharge)
	})
}
