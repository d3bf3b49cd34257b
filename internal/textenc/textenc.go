// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textenc decodes staged artifact bytes from their declared
// encodings into UTF-8. Mainframe sources commonly declare EBCDIC code
// pages; web-hosted mirrors declare Latin-1 or UTF-8.
// Implements: prd002-filter (R2.4);
//
//	docs/ARCHITECTURE § Quality Filter.
package textenc

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrUnsupported reports an encoding name this package cannot decode.
	ErrUnsupported = errors.New("unsupported encoding")

	// ErrInvalidText reports content that does not decode cleanly under its
	// declared encoding, or that decodes to binary (NUL bytes).
	ErrInvalidText = errors.New("invalid text")
)

// encodings maps canonical encoding names to their decoders. UTF-8 maps to
// nil and is validated rather than converted.
var encodings = map[string]encoding.Encoding{
	"UTF-8":        nil,
	"IBM037":       charmap.CodePage037,
	"IBM1047":      charmap.CodePage1047,
	"IBM1140":      charmap.CodePage1140,
	"ISO-8859-1":   charmap.ISO8859_1,
	"WINDOWS-1252": charmap.Windows1252,
}

// aliases maps alternate spellings to canonical names. The empty name
// defaults to UTF-8.
var aliases = map[string]string{
	"":             "UTF-8",
	"UTF8":         "UTF-8",
	"US-ASCII":     "UTF-8",
	"ASCII":        "UTF-8",
	"CP037":        "IBM037",
	"EBCDIC-CP-US": "IBM037",
	"CP1047":       "IBM1047",
	"CP1140":       "IBM1140",
	"LATIN-1":      "ISO-8859-1",
	"LATIN1":       "ISO-8859-1",
	"ISO8859-1":    "ISO-8859-1",
	"CP1252":       "WINDOWS-1252",
}

// Canonical resolves an encoding name to its canonical form, or returns
// ErrUnsupported. Matching is case-insensitive and treats underscores as
// dashes.
func Canonical(name string) (string, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "_", "-")
	if alias, ok := aliases[n]; ok {
		n = alias
	}
	if _, ok := encodings[n]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, name)
	}
	return n, nil
}

// Decode converts data from the named encoding to UTF-8 text. It fails with
// ErrUnsupported for unknown encoding names and with ErrInvalidText when the
// bytes do not decode cleanly or the decoded text contains NUL bytes.
func Decode(data []byte, name string) (string, error) {
	canonical, err := Canonical(name)
	if err != nil {
		return "", err
	}

	var text string
	if enc := encodings[canonical]; enc == nil {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("decode %s: %w: malformed byte sequence", canonical, ErrInvalidText)
		}
		text = string(data)
	} else {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", canonical, ErrInvalidText)
		}
		text = string(decoded)
	}

	if strings.IndexByte(text, 0) >= 0 {
		return "", fmt.Errorf("decode %s: %w: NUL byte", canonical, ErrInvalidText)
	}
	return text, nil
}

// Supported returns the canonical names of all supported encodings, sorted.
func Supported() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
