package importer

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Source yields the raw bytes of an export file.
type Source interface {
	ReadAll(name string) ([]byte, error)
}

// Load reads name from src and decodes it with the labelled encoding.
func Load(src Source, name, label string) (string, []byte, error) {
	raw, err := src.ReadAll(name)
	if err != nil {
		return "", nil, &DecodeError{Kind: KindSourceUnreadable, Source: name, Err: err}
	}
	text, err := Decode(raw, label)
	if err != nil {
		return "", nil, err
	}
	return text, raw, nil
}

// Decode converts raw export bytes to text and removes line breaks that
// ended up inside quoted fields. Undecodable bytes become U+FFFD.
func Decode(raw []byte, label string) (string, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return "", &DecodeError{Kind: KindUnknownEncoding, Source: label, Err: err}
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", label, err)
	}
	return normalize(string(decoded)), nil
}

// normalize toggles on every quote without treating doubled quotes as
// escapes; CR and LF are dropped while the toggle is on.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inQuotes := false
	for _, r := range text {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case inQuotes && (r == '\r' || r == '\n'):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
