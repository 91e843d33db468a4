package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

type progressReporter struct {
	out     io.Writer
	enabled bool
	label   string
	verb    string
	total   int
	start   time.Time
	spinner int
	lastLen int
}

// newProgressReporter reports on w only when w is a terminal and the run is
// not producing JSON.
func newProgressReporter(w io.Writer, label, verb string, total int, asJSON bool) *progressReporter {
	enabled := false
	if f, ok := w.(*os.File); ok && !asJSON {
		stat, err := f.Stat()
		enabled = err == nil && (stat.Mode()&os.ModeCharDevice) != 0
	}
	return &progressReporter{
		out:     w,
		enabled: enabled,
		label:   label,
		verb:    verb,
		total:   total,
		start:   time.Now(),
	}
}

func (r *progressReporter) Update(item string, count int) {
	if !r.enabled {
		return
	}
	frames := [4]string{"-", "\\", "|", "/"}
	frame := frames[r.spinner%len(frames)]
	r.spinner++
	item = strings.TrimSpace(item)
	if len(item) > 88 {
		item = "..." + item[len(item)-85:]
	}

	status := fmt.Sprintf("%s %s %d %s %s", frame, r.label, count, r.verb, item)
	if r.total > 0 {
		status = fmt.Sprintf("%s %s %d/%d %s %s", frame, r.label, count, r.total, r.verb, item)
	}
	r.printStatus(status)
}

func (r *progressReporter) Done(count int) {
	if !r.enabled {
		return
	}
	elapsed := time.Since(r.start).Round(time.Millisecond)
	r.printStatus(fmt.Sprintf("%s complete (%d in %s)", r.label, count, elapsed))
	fmt.Fprintln(r.out)
}

func (r *progressReporter) printStatus(status string) {
	if r.lastLen > len(status) {
		status = status + strings.Repeat(" ", r.lastLen-len(status))
	}
	r.lastLen = len(status)
	fmt.Fprintf(r.out, "\r%s", status)
}
