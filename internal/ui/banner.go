package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// Banner prints the startup banner. It is skipped in JSON mode.
func (c *Console) Banner(version string) {
	if c.json {
		return
	}
	border := []color.Attribute{color.FgCyan, color.Bold}
	title := []color.Attribute{color.FgHiMagenta, color.Bold}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.paint(border, "╔══════════════════════════════════════╗"))
	fmt.Fprintf(c.out, "%s %s %s %s\n",
		c.paint(border, "║ "),
		c.paint(title, "VOCABMASTER"),
		c.paint(mutedText, fmt.Sprintf("%-23s", "sidecar "+version)),
		c.paint(border, "║"),
	)
	fmt.Fprintln(c.out, c.paint(border, "╚══════════════════════════════════════╝"))
}
