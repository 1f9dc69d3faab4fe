package transport

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var (
	jsonCompact = jsoniter.Config{
		EscapeHTML:  false,
		SortMapKeys: false,
	}.Froze()

	jsonIndented = jsoniter.Config{
		EscapeHTML:    false,
		SortMapKeys:   true,
		IndentionStep: 4,
	}.Froze()
)

// WriteJSON encodes data to w followed by a newline. The indented form sorts map keys and
// is meant for logs.
func WriteJSON(w io.Writer, data interface{}, indent bool) error {
	api := jsonCompact
	if indent {
		api = jsonIndented
	}
	return api.NewEncoder(w).Encode(data)
}

// drain reads what is left of r and closes it, so the connection can be reused.
func drain(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, r)
	_ = r.Close()
}
