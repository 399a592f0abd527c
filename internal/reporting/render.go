package reporting

import (
	"encoding/json"
	"fmt"
	"io"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Render writes r to w in the given format.
func Render(w io.Writer, format string, r *Report) error {
	var out string
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		out = string(data) + "\n"
	case FormatCSV:
		var err error
		if out, err = RenderCSV(r); err != nil {
			return err
		}
	case FormatMarkdown, "md":
		out = RenderMarkdown(r)
	default:
		return fmt.Errorf("unknown format %q (want json, csv or markdown)", format)
	}
	_, err := io.WriteString(w, out)
	return err
}
