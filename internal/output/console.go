package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Console writes status lines for the user. It is kept apart from the
// Formatter so progress messages never end up in a report written to stdout.
type Console struct {
	w       io.Writer
	colored bool
}

// NewConsole creates a console writing to w. Without color, warnings and
// errors are marked with a prefix instead.
func NewConsole(w io.Writer, colored bool) *Console {
	return &Console{w: w, colored: colored}
}

func (c *Console) Success(format string, args ...any) {
	c.line(color.FgGreen, "", format, args...)
}

func (c *Console) Warning(format string, args ...any) {
	c.line(color.FgYellow, "WARNING: ", format, args...)
}

func (c *Console) Error(format string, args ...any) {
	c.line(color.FgRed, "ERROR: ", format, args...)
}

func (c *Console) Info(format string, args ...any) {
	c.line(color.FgCyan, "", format, args...)
}

// Printf writes uncolored text as is.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func (c *Console) line(attr color.Attribute, prefix, format string, args ...any) {
	if c.colored {
		color.New(attr).Fprintf(c.w, format+"\n", args...)
		return
	}
	fmt.Fprintf(c.w, prefix+format+"\n", args...)
}
