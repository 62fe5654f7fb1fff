// Package output formats machine-readable CLI output.
package output

import (
	"encoding/json"
	"io"
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// WriteJSON writes v followed by a newline. Output to a terminal is indented
// with two spaces; anything else gets one compact line per value.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if IsTTY(w) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
