package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI escape sequences.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

var colorEnabled = true

// DisableColors turns off ANSI output, e.g. for --no-color or non-TTY output.
func DisableColors() { colorEnabled = false }

// EnableColors turns ANSI output back on.
func EnableColors() { colorEnabled = true }

// paint returns text wrapped in the given escape sequences.
func paint(text string, codes ...string) string {
	if !colorEnabled || len(codes) == 0 {
		return text
	}
	return strings.Join(codes, "") + text + colorReset
}

func red(text string) string    { return paint(text, colorRed) }
func green(text string) string  { return paint(text, colorGreen) }
func yellow(text string) string { return paint(text, colorYellow) }
func cyan(text string) string   { return paint(text, colorCyan) }
func gray(text string) string   { return paint(text, colorGray) }

// Format renders the error for a terminal: a header line, the location,
// a hex dump around the failing byte, the detail and a hint.
func (e *RecError) Format() string {
	var b strings.Builder

	header := "ERROR: "
	if e.Code != "" {
		header = "ERROR " + e.Code + ": "
	}
	fmt.Fprintf(&b, "\n%s%s\n\n", paint(header, colorRed, colorBold), paint(e.Message, colorWhite))

	if loc := e.Location; loc != nil {
		fmt.Fprintf(&b, "  %s\n\n", cyan(loc.String()))
		if len(e.Context) > 0 {
			hexDump(&b, e.Context, e.ContextStart, loc.Offset)
			b.WriteByte('\n')
		}
	}

	if lines := wrapText(e.Detail, 70); len(lines) > 0 {
		for _, line := range lines {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteByte('\n')
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", cyan("Hint: "), e.Suggestion)
	}
	return b.String()
}

// hexDump writes data as rows of bytesPerRow bytes, starting at file
// offset start. The row holding mark gets an arrow and a caret line.
func hexDump(b *strings.Builder, data []byte, start, mark int64) {
	for len(data) > 0 {
		n := min(bytesPerRow, len(data))
		row := data[:n]
		data = data[n:]

		marked := mark >= start && mark < start+bytesPerRow
		gutter := "    "
		if marked {
			gutter = "  " + red("→ ")
		}
		hex := make([]string, len(row))
		for i, c := range row {
			hex[i] = fmt.Sprintf("%02x", c)
		}
		fmt.Fprintf(b, "%s%08x%s%s\n", gutter, start, gray(" │ "), strings.Join(hex, " "))

		if marked {
			pad := strings.Repeat(" ", int(mark-start)*3)
			fmt.Fprintf(b, "%12s%s%s%s\n", "", gray("│ "), pad, red("^^"))
		}
		start += bytesPerRow
	}
}

// FormatCompact renders the error on one line: "file@0xOFF: CODE: message".
func (e *RecError) FormatCompact() string {
	parts := make([]string, 0, 3)
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	return strings.Join(append(parts, e.Message), ": ")
}

type jsonLocation struct {
	File   string `json:"file,omitempty"`
	Offset int64  `json:"offset"`
	Opcode string `json:"opcode,omitempty"`
	Field  string `json:"field,omitempty"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// FormatJSON renders the error as a single JSON object.
func (e *RecError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
	}
	if l := e.Location; l != nil {
		out.Location = &jsonLocation{File: l.File, Offset: l.Offset, Opcode: l.Opcode, Field: l.Field}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText greedily fills lines of at most width bytes. A word longer
// than width gets a line of its own.
func wrapText(text string, width int) []string {
	var (
		lines []string
		line  string
	)
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Success formats a green check line.
func Success(format string, args ...any) string {
	return green("✓ ") + fmt.Sprintf(format, args...)
}

// Warning formats a yellow warning line.
func Warning(format string, args ...any) string {
	return yellow("! ") + fmt.Sprintf(format, args...)
}

// PrintError writes err to stderr in terminal form.
func PrintError(err error) {
	FprintError(os.Stderr, err)
}

// FprintError writes err to w. Decode errors are converted to their
// catalog entry first; anything else is printed as a bare ERROR line.
func FprintError(w io.Writer, err error) {
	var re *RecError
	if !errors.As(err, &re) {
		re = FromDecodeError(err)
	}
	if re != nil {
		io.WriteString(w, re.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint("ERROR:", colorRed, colorBold), err)
}
