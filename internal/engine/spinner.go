package engine

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// listingSpinner gives non-verbose runs a sign of life while the Lister
// and workers are active, without competing with the StatusReporter's
// richer line in verbose mode.
type listingSpinner struct {
	s *spinner.Spinner
}

func newListingSpinner(out io.Writer) *listingSpinner {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " scanning"
	return &listingSpinner{s: s}
}

func (l *listingSpinner) start() {
	l.s.Start()
}

func (l *listingSpinner) stop() {
	l.s.Stop()
}
