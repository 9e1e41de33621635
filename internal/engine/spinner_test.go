package engine

import (
	"bytes"
	"testing"
	"time"
)

func TestListingSpinnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	spin := newListingSpinner(&buf)

	spin.start()
	time.Sleep(20 * time.Millisecond)
	spin.stop()
}
