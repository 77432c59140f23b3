package render

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MultimediaKind tags the top-level layout of an object's multimedia field
type MultimediaKind int

const (
	// MultimediaNone covers absent, null, scalar and unparseable values
	MultimediaNone MultimediaKind = iota
	// MultimediaObject is a single media object
	MultimediaObject
	// MultimediaArray is a list of media objects
	MultimediaArray
)

func (k MultimediaKind) String() string {
	switch k {
	case MultimediaObject:
		return "object"
	case MultimediaArray:
		return "array"
	default:
		return "none"
	}
}

// Variant is one size of an image (preview, large), which the API has sent
// either as a bare URL string or as an object with url/location keys.
type Variant struct {
	Direct   string
	URL      string
	Location string
}

// Resolve returns the variant's URL: the bare string, else url, else location
func (v Variant) Resolve() string {
	if v.Direct != "" {
		return v.Direct
	}
	if v.URL != "" {
		return v.URL
	}
	return v.Location
}

// Media is one multimedia entry
type Media struct {
	Preview Variant
	Large   Variant
	URL     string
	Image   string
}

// Multimedia is the parsed form of the multimedia field
type Multimedia struct {
	Kind MultimediaKind
	// Encoded is set when the field arrived as a JSON document inside a string
	Encoded bool
	Object  Media
	Entries []Media
}

// ParseMultimedia decodes every historical layout of the multimedia field:
// an object, an array of objects, or either of those encoded as a JSON
// string. Anything else, including malformed JSON, parses as MultimediaNone.
func ParseMultimedia(raw json.RawMessage) Multimedia {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Multimedia{}
	}

	encoded := false
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Multimedia{}
		}
		raw = bytes.TrimSpace([]byte(s))
		encoded = true
		if len(raw) == 0 {
			return Multimedia{}
		}
	}

	switch raw[0] {
	case '{':
		fields, ok := decodeObject(raw)
		if !ok {
			return Multimedia{}
		}
		return Multimedia{Kind: MultimediaObject, Encoded: encoded, Object: mediaFrom(fields)}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return Multimedia{}
		}
		entries := make([]Media, 0, len(items))
		for _, item := range items {
			fields, _ := decodeObject(item)
			entries = append(entries, mediaFrom(fields))
		}
		return Multimedia{Kind: MultimediaArray, Encoded: encoded, Entries: entries}
	default:
		return Multimedia{}
	}
}

// ImageURL picks the image to show, in order:
// preview.location on a plain object; the first array entry's preview then
// large; an object's preview, large, url, then image.
func (m Multimedia) ImageURL() string {
	switch m.Kind {
	case MultimediaObject:
		if !m.Encoded && m.Object.Preview.Location != "" {
			return m.Object.Preview.Location
		}
		o := m.Object
		for _, candidate := range []string{o.Preview.Resolve(), o.Large.Resolve(), o.URL, o.Image} {
			if candidate != "" {
				return candidate
			}
		}
	case MultimediaArray:
		if len(m.Entries) == 0 {
			return ""
		}
		first := m.Entries[0]
		if src := first.Preview.Resolve(); src != "" {
			return src
		}
		return first.Large.Resolve()
	}
	return ""
}

// NormalizeImageURL gives scheme-less (protocol-relative) URLs an https: prefix
func NormalizeImageURL(src string) string {
	if src == "" || strings.HasPrefix(src, "http") {
		return src
	}
	return "https:" + src
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func mediaFrom(fields map[string]json.RawMessage) Media {
	return Media{
		Preview: variantFrom(fields["preview"]),
		Large:   variantFrom(fields["large"]),
		URL:     stringFrom(fields["url"]),
		Image:   stringFrom(fields["image"]),
	}
}

func variantFrom(raw json.RawMessage) Variant {
	if s := stringFrom(raw); s != "" {
		return Variant{Direct: s}
	}
	fields, ok := decodeObject(raw)
	if !ok {
		return Variant{}
	}
	return Variant{
		URL:      stringFrom(fields["url"]),
		Location: stringFrom(fields["location"]),
	}
}

// stringFrom returns raw as a string when it is a JSON string, else ""
func stringFrom(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
