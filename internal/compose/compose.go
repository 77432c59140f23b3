package compose

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// PageSize is the number of objects requested by a filter-built query
const PageSize = 12

// DefaultQuery is the editor text a new sandbox session starts with
const DefaultQuery = `{
  object(hasImages:true, size:12, page:1) {
    id
    title
    summary
    date
    multimedia
  }
}`

// objectFields are the fields selected by a filter-built query
var objectFields = []string{"id", "title", "summary", "date", "multimedia"}

// Filters holds the structured search inputs of the sandbox
type Filters struct {
	Maker    string `json:"maker" yaml:"maker"`
	YearFrom string `json:"from" yaml:"from"`
	YearTo   string `json:"to" yaml:"to"`
}

// Empty reports whether none of the filter fields is set
func (f Filters) Empty() bool {
	return f.Maker == "" && f.YearFrom == "" && f.YearTo == ""
}

// Compose returns the query text to submit.
// With no filters set the raw editor text is returned untouched; otherwise
// the filters replace it with a generated object query.
func Compose(raw string, f Filters) string {
	if f.Empty() {
		return raw
	}

	args := make([]string, 0, 4)
	if f.Maker != "" {
		args = append(args, fmt.Sprintf(`maker:"%s"`, escapeQuotes(f.Maker)))
	}

	switch {
	case f.YearFrom != "" && f.YearTo != "":
		args = append(args, fmt.Sprintf("yearRange:{from:%s, to:%s}", coerceNumber(f.YearFrom), coerceNumber(f.YearTo)))
	case f.YearFrom != "" || f.YearTo != "":
		// a half-open range is dropped rather than rejected
		slog.Debug("Dropping incomplete year range", "from", f.YearFrom, "to", f.YearTo)
	}

	args = append(args, "hasImages:true", fmt.Sprintf("size:%d", PageSize))

	var sb strings.Builder
	sb.WriteString("{\n")
	sb.WriteString("  object(")
	sb.WriteString(strings.Join(args, ", "))
	sb.WriteString(") {\n")
	for _, field := range objectFields {
		sb.WriteString("    ")
		sb.WriteString(field)
		sb.WriteString("\n")
	}
	sb.WriteString("  }\n")
	sb.WriteString("}")

	return sb.String()
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// coerceNumber renders s the way a numeric coercion would: surrounding
// whitespace ignored, blank is zero, anything unparseable becomes NaN.
func coerceNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "0"
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 0) {
		if n > 0 {
			return "Infinity"
		}
		return "-Infinity"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
