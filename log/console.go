package log

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// ConsoleSink writes colorized single-line diagnostics to an io.Writer, the
// way the teacher's cmd package colorizes console logging with fatih/color
// gated on an isatty check and routed through mattn/go-colorable so colors
// still work on Windows consoles.
type ConsoleSink struct {
	w      io.Writer
	colors bool
}

// NewConsoleSink builds a ConsoleSink over os.Stderr, auto-detecting color
// support the way the teacher's logger setup does.
func NewConsoleSink() *ConsoleSink {
	f := os.Stderr
	return &ConsoleSink{
		w:      colorable.NewColorable(f),
		colors: isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()),
	}
}

func levelColor(l Level) *color.Color {
	switch l {
	case Debug:
		return color.New(color.FgHiBlack)
	case Info:
		return color.New(color.FgCyan)
	case Warn:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// Log implements Sink.
func (c *ConsoleSink) Log(ev Event) error {
	tag := fmt.Sprintf("[%s]", ev.Level)
	if c.colors {
		tag = levelColor(ev.Level).Sprint(tag)
	}
	if ev.Line > 0 {
		_, err := fmt.Fprintf(c.w, "%s %s:%d %s\n", tag, ev.ModuleID, ev.Line, ev.Message)
		return err
	}
	_, err := fmt.Fprintf(c.w, "%s %s %s\n", tag, ev.ModuleID, ev.Message)
	return err
}
