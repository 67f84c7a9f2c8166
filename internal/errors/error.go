package errors

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vango-dev/mgxrec/pkg/protocol"
)

// Category represents the type of error.
type Category string

const (
	CategoryDecode  Category = "decode"
	CategoryVerify  Category = "verify"
	CategoryConfig  Category = "config"
	CategoryStorage Category = "storage"
	CategoryServer  Category = "server"
	CategoryCLI     Category = "cli"
)

// Location is a position in a recording.
type Location struct {
	File   string
	Offset int64
	Opcode string
	Field  string
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	s := fmt.Sprintf("%s@0x%x", l.File, l.Offset)
	if l.File == "" {
		s = fmt.Sprintf("offset 0x%x", l.Offset)
	}
	switch {
	case l.Opcode != "" && l.Field != "":
		s += fmt.Sprintf(" (%s.%s)", l.Opcode, l.Field)
	case l.Opcode != "":
		s += fmt.Sprintf(" (%s)", l.Opcode)
	case l.Field != "":
		s += fmt.Sprintf(" (%s)", l.Field)
	}
	return s
}

// RecError is a coded error with a stream location and a hint.
type RecError struct {
	// Code is a unique error identifier (e.g., "R001").
	Code string

	// Category is the error type (decode, config, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the position in the recording where the error occurred.
	Location *Location

	// Context holds the bytes around Location, starting at ContextStart.
	Context      []byte
	ContextStart int64

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *RecError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *RecError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a stream location to the error and loads the bytes
// around it from file, if it can be read.
func (e *RecError) WithLocation(file string, offset int64) *RecError {
	if e.Location == nil {
		e.Location = &Location{}
	}
	e.Location.File = file
	e.Location.Offset = offset
	e.Context, e.ContextStart = readContextBytes(file, offset, contextRows)
	return e
}

// WithBytes sets the context bytes directly, for input that is not a file.
func (e *RecError) WithBytes(data []byte, offset int64) *RecError {
	if e.Location == nil {
		e.Location = &Location{}
	}
	e.Location.Offset = offset
	e.Context, e.ContextStart = contextWindow(data, offset, contextRows)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *RecError) WithSuggestion(s string) *RecError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *RecError) WithDetail(d string) *RecError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *RecError) Wrap(err error) *RecError {
	e.Wrapped = err
	return e
}

const (
	bytesPerRow = 16
	contextRows = 3
)

// contextWindow returns up to rows rows of data centred on offset,
// aligned to bytesPerRow.
func contextWindow(data []byte, offset int64, rows int) ([]byte, int64) {
	if offset < 0 || offset > int64(len(data)) {
		return nil, 0
	}
	start := offset/bytesPerRow*bytesPerRow - int64(rows/2*bytesPerRow)
	if start < 0 {
		start = 0
	}
	end := min(start+int64(rows*bytesPerRow), int64(len(data)))
	return data[start:end], start
}

// readContextBytes reads the rows around offset from a file.
func readContextBytes(filename string, offset int64, rows int) ([]byte, int64) {
	if filename == "" || filename == "-" || offset < 0 {
		return nil, 0
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	start := offset/bytesPerRow*bytesPerRow - int64(rows/2*bytesPerRow)
	if start < 0 {
		start = 0
	}
	buf := make([]byte, rows*bytesPerRow)
	n, err := file.ReadAt(buf, start)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, 0
	}
	return buf[:n], start
}

// New creates a RecError from a registered error code.
func New(code string) *RecError {
	template, ok := registry[code]
	if !ok {
		return &RecError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &RecError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new RecError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *RecError {
	return &RecError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a RecError. Decode errors keep
// their own code and location.
func FromError(err error, code string) *RecError {
	if err == nil {
		return nil
	}
	var re *RecError
	if errors.As(err, &re) {
		return re
	}
	if de := FromDecodeError(err); de != nil {
		return de
	}
	return New(code).Wrap(err)
}

// decodeCodes maps codec error codes to registry codes.
var decodeCodes = map[protocol.ErrorCode]string{
	protocol.CodeTruncated:              "R001",
	protocol.CodeUnsupportedOpcode:      "R002",
	protocol.CodeUnsupportedGameCommand: "R003",
	protocol.CodeUnsupportedAction:      "R004",
	protocol.CodeInvariant:              "R005",
	protocol.CodeNarrowing:              "R006",
	protocol.CodeFrameTooLarge:          "R007",
	protocol.CodeIO:                     "R008",
}

// FromDecodeError converts the *protocol.DecodeError in err's chain into a
// RecError carrying its offset, opcode and field. It returns nil if err
// holds no decode error.
func FromDecodeError(err error) *RecError {
	var de *protocol.DecodeError
	if !errors.As(err, &de) {
		return nil
	}
	code, ok := decodeCodes[de.Code]
	if !ok {
		code = "R000"
	}
	e := New(code).Wrap(err)
	e.Location = &Location{Offset: de.Offset, Field: de.Field}
	if de.Opcode != nil {
		e.Location.Opcode = de.Opcode.String()
	}
	if de.Err != nil {
		e.Detail = de.Err.Error() + ". " + e.Detail
	}
	return e
}
