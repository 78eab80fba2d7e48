package ui

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/pretty"
)

// FormatJSON pretty-prints raw when it is valid JSON, optionally with ANSI
// colors. Otherwise it indents fallback with two spaces.
func FormatJSON(raw []byte, fallback any, color bool) string {
	if len(raw) > 0 && json.Valid(raw) {
		out := pretty.PrettyOptions(raw, &pretty.Options{Indent: "  ", Width: 80, SortKeys: false})
		if color {
			out = pretty.Color(out, nil)
		}
		return strings.TrimRight(string(out), "\n")
	}

	out, err := json.MarshalIndent(fallback, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}
