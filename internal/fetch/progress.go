package fetch

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// Progress draws a single, self-overwriting status line. A nil or disabled
// Progress does nothing.
type Progress struct {
	w       io.Writer
	enabled bool
	dirty   bool
}

// NewProgress creates a progress line on w.
func NewProgress(w io.Writer, enabled bool) *Progress {
	return &Progress{w: w, enabled: enabled}
}

// TerminalProgress draws on stderr, but only when stderr is a terminal.
func TerminalProgress() *Progress {
	return NewProgress(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

// Update shows how much of a file has been written. total may be zero when
// the listing did not report a size.
func (p *Progress) Update(file string, written, total int64) {
	if p == nil || !p.enabled {
		return
	}

	if total > 0 {
		percent := float64(written) * 100 / float64(total)
		if percent > 100 {
			percent = 100
		}
		fmt.Fprintf(p.w, "\r\033[KDownloading %s... %s / %s [%.1f%%]",
			file, humanize.Bytes(uint64(written)), humanize.Bytes(uint64(total)), percent)
	} else {
		fmt.Fprintf(p.w, "\r\033[KDownloading %s... %s", file, humanize.Bytes(uint64(written)))
	}
	p.dirty = true
}

// Clear erases the progress line if one is showing.
func (p *Progress) Clear() {
	if p == nil || !p.enabled || !p.dirty {
		return
	}
	fmt.Fprint(p.w, "\r\033[K")
	p.dirty = false
}
