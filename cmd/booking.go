package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/pickup-booker/pkg/booking"
)

// requestFlags are the caller-supplied booking parameters shared by
// fill and book.
type requestFlags struct {
	date         string
	packages     int
	weight       int
	earliest     string
	latest       string
	doorCode     string
	instructions string
}

func (f *requestFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.date, "date", "", "collection date YYYY-MM-DD (default: smart date)")
	c.Flags().IntVar(&f.packages, "packages", 0, "number of packages (default 1)")
	c.Flags().IntVar(&f.weight, "weight", 0, "total weight in kg (default 10)")
	c.Flags().StringVar(&f.earliest, "earliest", "", "earliest collection time HH:MM (default: smart time)")
	c.Flags().StringVar(&f.latest, "latest", "", "latest collection time HH:MM (default 18:00)")
	c.Flags().StringVar(&f.doorCode, "door-code", "", "door code embedded into the special instructions")
	c.Flags().StringVar(&f.instructions, "instructions", "", "driver instructions (overrides --door-code)")
}

func (f *requestFlags) toRequest() (booking.FormRequest, error) {
	req := booking.FormRequest{
		Packages:     f.packages,
		WeightKg:     f.weight,
		EarliestTime: f.earliest,
		LatestTime:   f.latest,
		DoorCode:     f.doorCode,
		Instructions: f.instructions,
	}

	if f.date != "" {
		date, err := time.Parse("2006-01-02", f.date)
		if err != nil {
			return req, fmt.Errorf("invalid --date (want YYYY-MM-DD): %w", err)
		}
		req.Date = date
	}

	return req, nil
}

func newFillCmd() *cobra.Command {
	flags := &requestFlags{}

	c := &cobra.Command{
		Use:   "fill",
		Short: "Fill the booking form and capture a review screenshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.toRequest()
			if err != nil {
				return err
			}
			booker, err := newBooker()
			if err != nil {
				return err
			}
			defer booker.Close()
			return printJSON(booker.FillForm(req))
		},
	}

	flags.register(c)
	return c
}

func newSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Submit a previously filled form and extract the confirmation",
		RunE: func(cmd *cobra.Command, args []string) error {
			booker, err := newBooker()
			if err != nil {
				return err
			}
			defer booker.Close()
			return printJSON(booker.Submit())
		},
	}
}

func newBookCmd() *cobra.Command {
	flags := &requestFlags{}

	c := &cobra.Command{
		Use:   "book",
		Short: "Fill and submit in one run, keeping one page end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.toRequest()
			if err != nil {
				return err
			}
			booker, err := newBooker()
			if err != nil {
				return err
			}
			defer booker.Close()
			return printJSON(booker.Book(req))
		},
	}

	flags.register(c)
	return c
}

func newScreenshotCmd() *cobra.Command {
	var (
		filename string
		fullPage bool
	)

	c := &cobra.Command{
		Use:   "screenshot",
		Short: "Capture the current page state",
		RunE: func(cmd *cobra.Command, args []string) error {
			booker, err := newBooker()
			if err != nil {
				return err
			}
			defer booker.Close()
			return printJSON(booker.TakeScreenshot(booking.ScreenshotOptions{
				Filename: filename,
				FullPage: fullPage,
			}))
		},
	}

	c.Flags().StringVar(&filename, "filename", "", "screenshot name prefix")
	c.Flags().BoolVar(&fullPage, "full-page", true, "capture the full page")
	return c
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Close the browser session and delete its descriptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			booker, err := newBooker()
			if err != nil {
				return err
			}
			defer booker.Close()
			return printJSON(booker.Reset())
		},
	}
}
