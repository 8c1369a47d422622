// Package ui renders command results for a terminal: colored status badges
// when attached to a TTY, plain text otherwise, and JSON on request.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/hpn/vocab-master/internal/config"
	"github.com/hpn/vocab-master/internal/worker"
)

// Exit codes returned for an outcome.
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitRateLimited = 2
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// Badge colors
	successBadge = []color.Attribute{color.BgGreen, color.FgBlack, color.Bold}
	warningBadge = []color.Attribute{color.FgYellow, color.Bold}
	errorBadge   = []color.Attribute{color.BgRed, color.FgWhite, color.Bold}
	infoBadge    = []color.Attribute{color.FgCyan, color.Bold}

	// Text colors
	warningText = []color.Attribute{color.FgYellow}
	errorText   = []color.Attribute{color.FgRed}
	mutedText   = []color.Attribute{color.FgHiBlack}
	accentText  = []color.Attribute{color.FgMagenta, color.Bold}
	neonBlue    = []color.Attribute{color.FgHiCyan, color.Bold}

	// Method colors
	methodPOST = []color.Attribute{color.BgHiMagenta, color.FgBlack, color.Bold}
	methodGET  = []color.Attribute{color.BgHiCyan, color.FgBlack, color.Bold}
	methodPUT  = []color.Attribute{color.BgHiYellow, color.FgBlack, color.Bold}
)

// Console writes results to out.
type Console struct {
	out      io.Writer
	colorize bool
	json     bool
}

// NewConsole returns a Console for out. Colors are used only when out is a
// terminal; jsonMode replaces all rendering with JSON documents.
func NewConsole(out io.Writer, jsonMode bool) *Console {
	return &Console{
		out:      out,
		colorize: !jsonMode && shouldColorize(out),
		json:     jsonMode,
	}
}

func shouldColorize(w io.Writer) bool {
	if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *Console) paint(attrs []color.Attribute, s string) string {
	if !c.colorize {
		return s
	}
	painter := color.New(attrs...)
	painter.EnableColor()
	return painter.Sprint(s)
}

// ExitCode maps an outcome onto the process exit code.
func ExitCode(o worker.Outcome) int {
	switch o.(type) {
	case worker.Success:
		return ExitSuccess
	case worker.RateLimited:
		return ExitRateLimited
	default:
		return ExitFailure
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// OUTCOMES
// ══════════════════════════════════════════════════════════════════════════════

// outcomeDocument is the JSON form of an outcome.
type outcomeDocument struct {
	Status      string `json:"status"`
	Text        string `json:"text,omitempty"`
	Message     string `json:"message,omitempty"`
	WaitSeconds int    `json:"wait_seconds,omitempty"`
}

// Outcome prints the result of an action and returns its exit code.
// Format: generated text, or [RATE LIMITED] / [ERROR] with the message.
func (c *Console) Outcome(o worker.Outcome) int {
	if c.json {
		c.writeJSON(document(o))
		return ExitCode(o)
	}

	switch o := o.(type) {
	case worker.Success:
		fmt.Fprintln(c.out, o.Text)
	case worker.RateLimited:
		fmt.Fprintf(c.out, "%s %s\n", c.paint(warningBadge, "[RATE LIMITED]"), c.paint(warningText, o.Message))
		fmt.Fprintf(c.out, "%s\n", c.paint(mutedText, fmt.Sprintf("Please wait %d seconds before trying again.", o.WaitSeconds)))
	case worker.Failed:
		fmt.Fprintf(c.out, "%s %s\n", c.paint(errorBadge, " ERROR "), c.paint(errorText, o.Message))
	}
	return ExitCode(o)
}

// Connection prints the result of a connection test for provider.
// Format: [ 200 OK ] Connected to OpenAI (gpt-3.5-turbo)
func (c *Console) Connection(provider, model string, o worker.Outcome) int {
	if _, ok := o.(worker.Success); ok {
		if c.json {
			c.writeJSON(outcomeDocument{Status: "success", Text: "ok"})
			return ExitSuccess
		}
		fmt.Fprintf(c.out, "%s Connected to %s %s\n",
			c.paint(successBadge, " OK "),
			c.paint(accentText, provider),
			c.paint(mutedText, "("+model+")"),
		)
		return ExitSuccess
	}
	return c.Outcome(o)
}

func document(o worker.Outcome) outcomeDocument {
	switch o := o.(type) {
	case worker.Success:
		return outcomeDocument{Status: "success", Text: o.Text}
	case worker.RateLimited:
		return outcomeDocument{Status: "rate_limited", Message: o.Message, WaitSeconds: o.WaitSeconds}
	case worker.Failed:
		return outcomeDocument{Status: "error", Message: o.Message}
	default:
		return outcomeDocument{Status: "error", Message: "Error: unknown outcome"}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config prints cfg with credentials masked.
func (c *Console) Config(cfg config.Configuration, path string) {
	redacted := cfg.Redacted()
	if c.json {
		c.writeJSON(redacted)
		return
	}

	settings := redacted.Settings()
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Key", "Value"})
	for _, key := range config.Keys() {
		tw.AppendRow(table.Row{key, formatValue(settings[key])})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})

	fmt.Fprintln(c.out, tw.Render())
	fmt.Fprintln(c.out, c.paint(mutedText, "Source: "+path))
}

// Saved confirms a configuration write.
func (c *Console) Saved(path string, keys []string) {
	if c.json {
		c.writeJSON(map[string]any{"status": "saved", "path": path, "keys": keys})
		return
	}
	fmt.Fprintf(c.out, "%s Updated %s in %s\n",
		c.paint(successBadge, " OK "),
		strings.Join(keys, ", "),
		path,
	)
}

// Path prints a bare path, for scripting.
func (c *Console) Path(path string) {
	if c.json {
		c.writeJSON(map[string]string{"path": path})
		return
	}
	fmt.Fprintln(c.out, path)
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		if v == "" {
			return "-"
		}
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

func (c *Console) writeJSON(v any) {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// StartupInfo prints the listening address and the available endpoints.
func (c *Console) StartupInfo(addr, configPath string) {
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "%s Sidecar listening on %s\n", c.paint(infoBadge, "[SIDECAR]"), c.paint(neonBlue, "http://"+addr))
	fmt.Fprintf(c.out, "%s Config: %s\n", c.paint(infoBadge, "[SIDECAR]"), configPath)
	fmt.Fprintln(c.out)
	c.printEndpoints()
}

// printEndpoints prints the available API endpoints.
func (c *Console) printEndpoints() {
	endpoints := []struct {
		method []color.Attribute
		verb   string
		path   string
		desc   string
	}{
		{methodPOST, "POST", "/v1/actions/:action", "Run an action"},
		{methodPOST, "POST", "/v1/connection/test", "Test the provider connection"},
		{methodGET, "GET ", "/v1/config", "Show configuration"},
		{methodPUT, "PUT ", "/v1/config", "Update configuration"},
		{methodGET, "GET ", "/health", "Health check"},
	}
	for _, e := range endpoints {
		fmt.Fprintf(c.out, "  %s %-22s %s\n", c.paint(e.method, " "+e.verb+" "), e.path, c.paint(mutedText, e.desc))
	}
	fmt.Fprintln(c.out)
}

// Shutdown prints a styled shutdown message.
func (c *Console) Shutdown() {
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "%s %s\n", c.paint(warningBadge, "[SHUTDOWN]"), c.paint(warningText, "Graceful shutdown initiated..."))
}

// Goodbye prints a styled goodbye message.
func (c *Console) Goodbye() {
	fmt.Fprintf(c.out, "%s Server stopped.\n", c.paint(successBadge, " OK "))
}
