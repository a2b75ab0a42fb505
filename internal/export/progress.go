// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
)

// ProgressSink receives human-readable status updates from the orchestrator.
// No export logic depends on it; implementations are free to drop messages.
type ProgressSink interface {
	// Status reports a transient status message.
	Status(msg string)

	// Progress reports harvested record counts. estimated is 0 when the
	// listing's total is unknown.
	Progress(harvested, estimated int)

	// Terminal reports the final outcome of the run, success or failure.
	Terminal(msg string)
}

// WriterSink writes progress messages to an io.Writer.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Status(msg string) {
	fmt.Fprintln(s.W, msg)
}

func (s WriterSink) Progress(harvested, estimated int) {
	if estimated > 0 {
		pct := float64(harvested) / float64(estimated) * 100
		if pct > 100 {
			pct = 100
		}
		fmt.Fprintf(s.W, "harvested %d of ~%d records (%.0f%%)\n", harvested, estimated, pct)
		return
	}
	fmt.Fprintf(s.W, "harvested %d records\n", harvested)
}

func (s WriterSink) Terminal(msg string) {
	fmt.Fprintln(s.W, msg)
}
