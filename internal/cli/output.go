package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/text/width"

	"github.com/roach88/esqlite/internal/codec"
	"github.com/roach88/esqlite/internal/engine"
	"github.com/roach88/esqlite/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Statement or scenario failure
	ExitCommandError = 2 // Command error (bad flags, unreadable files, database cannot open)
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope for every command's output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for JSON responses.
type CLIError struct {
	Code         string `json:"code"` // ir error code, e.g. SYNTAX_ERROR
	Message      string `json:"message"`
	EngineCode   int    `json:"engine_code,omitempty"`
	ExtendedCode int    `json:"extended_code,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w, Verbose: opts.Verbose}
}

// JSON reports whether output is JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success writes data as a JSON envelope, or calls text for text output.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Error writes err and returns an ExitError with ExitFailure.
func (f *OutputFormatter) Error(err error) error {
	e := ir.AsError(err)
	if f.JSON() {
		if encErr := json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:         string(e.Code),
				Message:      e.Message,
				EngineCode:   e.EngineCode,
				ExtendedCode: e.ExtendedCode,
			},
		}); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
		if f.Verbose && e.EngineCode != 0 {
			fmt.Fprintf(f.Writer, "Engine code: %d (extended %d)\n", e.EngineCode, e.ExtendedCode)
		}
	}
	return WrapExitError(ExitFailure, string(e.Code), err)
}

// ResultJSON is the JSON form of an engine result.
type ResultJSON struct {
	Columns      []string `json:"columns,omitempty"`
	Rows         [][]any  `json:"rows,omitempty"`
	RowsAffected int64    `json:"rows_affected,omitempty"`
	LastInsertID int64    `json:"last_insert_id,omitempty"`
}

func resultJSON(res *engine.Result) ResultJSON {
	out := ResultJSON{
		Columns:      res.Columns,
		RowsAffected: res.RowsAffected,
		LastInsertID: res.LastInsertID,
	}
	if res.Columns != nil {
		out.Rows = make([][]any, len(res.Rows))
		for i, row := range res.Rows {
			out.Rows[i] = rowJSON(row)
		}
	}
	return out
}

// rowJSON maps values to plain JSON: numbers, strings, base64 blobs and
// null. Reals JSON cannot hold (NaN, infinities) are written as literals.
func rowJSON(row ir.Row) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch val := v.(type) {
		case ir.Integer:
			out[i] = int64(val)
		case ir.Real:
			if f := float64(val); math.IsNaN(f) || math.IsInf(f, 0) {
				out[i] = codec.Render(val)
			} else {
				out[i] = f
			}
		case ir.Text:
			out[i] = string(val)
		case ir.Blob:
			out[i] = []byte(val)
		default:
			out[i] = nil
		}
	}
	return out
}

// displayValue renders a value for a text table. Text is shown raw; other
// values as their SQL literal.
func displayValue(v ir.Value) string {
	if t, ok := v.(ir.Text); ok {
		return string(t)
	}
	return codec.Render(v)
}

// displayWidth is the number of terminal cells s occupies. East Asian wide
// and fullwidth runes take two cells.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// writeTable writes a column-aligned table with a header rule.
func writeTable(w io.Writer, columns []string, rows []ir.Row) {
	cells := make([][]string, len(rows))
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = displayWidth(c)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(row))
		for i, v := range row {
			cells[r][i] = displayValue(v)
			if i < len(widths) {
				widths[i] = max(widths[i], displayWidth(cells[r][i]))
			}
		}
	}

	line := func(vals []string) {
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = v
			if i < len(vals)-1 && i < len(widths) {
				parts[i] += strings.Repeat(" ", widths[i]-displayWidth(v))
			}
		}
		fmt.Fprintln(w, strings.Join(parts, "  "))
	}

	line(columns)
	rule := make([]string, len(columns))
	for i := range columns {
		rule[i] = strings.Repeat("-", widths[i])
	}
	line(rule)
	for _, row := range cells {
		line(row)
	}
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
}
