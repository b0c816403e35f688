// Package console prints binder Views to a terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/seanblong/ragconsole/internal/binder"
)

var (
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	headingColor = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.Bold)
)

func statusColor(l binder.Level) *color.Color {
	switch l {
	case binder.LevelSuccess:
		return successColor
	case binder.LevelWarning:
		return warningColor
	default:
		return errorColor
	}
}

func statusMark(l binder.Level) string {
	switch l {
	case binder.LevelSuccess:
		return "✓"
	case binder.LevelWarning:
		return "!"
	default:
		return "✗"
	}
}

// Render writes v to w.
func Render(w io.Writer, v binder.View) {
	if v.Message != "" {
		statusColor(v.Level).Fprintf(w, "%s %s\n", statusMark(v.Level), v.Message)
	}
	if v.Raw != "" {
		fmt.Fprintln(w, indent(v.Raw))
	}
	for _, m := range v.Metrics {
		labelColor.Fprintf(w, "%s: ", m.Label)
		fmt.Fprintln(w, m.Value)
	}
	if v.Heading != "" {
		headingColor.Fprintf(w, "\n### %s\n", v.Heading)
	}
	if v.Text != "" {
		fmt.Fprintln(w, v.Text)
	}
	for _, s := range v.Sections {
		headingColor.Fprintf(w, "\n▸ %s\n", s.Title)
		for _, f := range s.Fields {
			labelColor.Fprintf(w, "  %s: ", f.Label)
			fmt.Fprintln(w, f.Value)
		}
	}
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}

// Spinner shows description until stop is called.
func Spinner(w io.Writer, description string) (stop func()) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		tick := time.NewTicker(100 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				_ = bar.Finish()
				return
			case <-tick.C:
				_ = bar.Add(1)
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}
