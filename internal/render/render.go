package render

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/chsandbox/internal/runner"
)

// Status describes what the results panel should show
type Status string

const (
	StatusNotRun  Status = "not_run"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusEmpty   Status = "empty"
	StatusResults Status = "results"
)

// Versioned is a field the API has sent both as a plain string and as a
// list of {value} objects
type Versioned struct {
	Present bool
	IsList  bool
	Scalar  string
	// First is the value of the list's first element, when it has one
	First    string
	HasFirst bool
}

func (v *Versioned) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*v = Versioned{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	v.Present = true
	switch b[0] {
	case '[':
		v.IsList = true
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil || len(items) == 0 {
			return nil
		}
		fields, ok := decodeObject(items[0])
		if !ok {
			return nil
		}
		if raw, ok := fields["value"]; ok {
			v.First, v.HasFirst = scalarText(raw)
		}
	default:
		v.Scalar, _ = scalarText(b)
	}
	return nil
}

// Summary is the summary object of a record; only its title is used
type Summary struct {
	Title    string
	HasTitle bool
}

func (s *Summary) UnmarshalJSON(b []byte) error {
	*s = Summary{}
	fields, ok := decodeObject(b)
	if !ok {
		return nil
	}
	if raw, ok := fields["title"]; ok {
		s.Title, s.HasTitle = scalarText(raw)
	}
	return nil
}

// FlexString accepts a JSON string or number
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	s, _ := scalarText(b)
	*f = FlexString(s)
	return nil
}

// Record is one element of data.object
type Record struct {
	ID         FlexString      `json:"id"`
	Title      Versioned       `json:"title"`
	Summary    Summary         `json:"summary"`
	Date       Versioned       `json:"date"`
	Multimedia json.RawMessage `json:"multimedia"`
}

// TitleText prefers summary.title, then the title field, then the id
func (r Record) TitleText() string {
	if r.Summary.HasTitle {
		return r.Summary.Title
	}
	if r.Title.IsList {
		if r.Title.HasFirst {
			return r.Title.First
		}
	} else if r.Title.Present {
		return r.Title.Scalar
	}
	return string(r.ID)
}

// YearText prefers the first dated value of a list, then a plain date
func (r Record) YearText() string {
	if r.Date.IsList && r.Date.First != "" {
		return r.Date.First
	}
	if !r.Date.IsList {
		return r.Date.Scalar
	}
	return ""
}

// Tile is one gallery entry
type Tile struct {
	ID       string `json:"id" yaml:"id" parquet:"id"`
	ImageURL string `json:"image_url,omitempty" yaml:"image_url,omitempty" parquet:"image_url"`
	Title    string `json:"title" yaml:"title" parquet:"title"`
	Year     string `json:"year,omitempty" yaml:"year,omitempty" parquet:"year"`
}

// Caption is the tile's figure caption, "title, year" or just the title
func (t Tile) Caption() string {
	if t.Year == "" {
		return t.Title
	}
	return t.Title + ", " + t.Year
}

// TileFor maps a record to its gallery tile
func TileFor(r Record) Tile {
	return Tile{
		ID:       string(r.ID),
		ImageURL: NormalizeImageURL(ParseMultimedia(r.Multimedia).ImageURL()),
		Title:    r.TitleText(),
		Year:     r.YearText(),
	}
}

// View is everything the results panel needs
type View struct {
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
	Tiles   []Tile `json:"tiles"`
	RawJSON string `json:"raw_json"`
}

// Render derives the results view from a runner state
func Render(state runner.State) View {
	view := View{
		Tiles:   []Tile{},
		RawJSON: rawJSON(state.Data),
	}

	switch {
	case state.Loading:
		view.Status = StatusLoading
		return view
	case state.Err != "":
		view.Status = StatusError
		view.Error = state.Err
		return view
	case state.Data == nil:
		view.Status = StatusNotRun
		return view
	}

	records, _ := Records(state.Data)
	if len(records) == 0 {
		view.Status = StatusEmpty
		return view
	}

	view.Status = StatusResults
	view.Tiles = make([]Tile, 0, len(records))
	for _, rec := range records {
		view.Tiles = append(view.Tiles, TileFor(rec))
	}
	return view
}

// Records decodes data.object. Elements that are not objects are skipped.
func Records(data json.RawMessage) ([]Record, error) {
	var payload struct {
		Object []json.RawMessage `json:"object"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(payload.Object))
	for _, raw := range payload.Object {
		if _, ok := decodeObject(raw); !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func rawJSON(data json.RawMessage) string {
	if len(data) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

// scalarText renders a JSON string or number as text. The bool is false
// for null, objects and arrays.
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		b, err := strconv.ParseBool(string(raw))
		if err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	case 'n', '{', '[':
		return "", false
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return strings.TrimSpace(n.String()), true
	}
}
