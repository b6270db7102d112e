// Package notice delivers transient user-facing notifications (toasts).
package notice

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Level classifies a notice.
type Level string

const (
	Success Level = "success"
	Error   Level = "error"
	Info    Level = "info"
)

// Notice is a single transient message. Title is optional.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

// Notifier accepts notices for display.
type Notifier interface {
	Notify(n Notice)
}

// Writer prints notices as single lines to an io.Writer.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer { return &Writer{out: out} }

func (w *Writer) Notify(n Notice) {
	w.mu.Lock()
	defer w.mu.Unlock()
	mark := "•"
	switch n.Level {
	case Success:
		mark = "✓"
	case Error:
		mark = "✗"
	}
	var err error
	if n.Title != "" {
		_, err = fmt.Fprintf(w.out, "%s %s: %s\n", mark, n.Title, n.Message)
	} else {
		_, err = fmt.Fprintf(w.out, "%s %s\n", mark, n.Message)
	}
	if err != nil {
		slog.Warn("notice: write failed", "err", err)
	}
}

// Recorder keeps every notice in memory. Used by tests and by callers that
// render notices in batch.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notices.
func (r *Recorder) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(Notice) {}

// Errorf posts an error notice built from format.
func Errorf(n Notifier, format string, args ...any) {
	n.Notify(Notice{Level: Error, Message: fmt.Sprintf(format, args...)})
}

// Successf posts a success notice built from format.
func Successf(n Notifier, format string, args ...any) {
	n.Notify(Notice{Level: Success, Message: fmt.Sprintf(format, args...)})
}
