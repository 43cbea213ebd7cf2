package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ErrDecode is returned when the byte encoding of an upload cannot be
// detected or the bytes cannot be decoded. The pipeline treats it as fatal
// for the whole upload: no rows are processed and the report is all zeros.
var ErrDecode = errors.New("unable to decode upload")

type (
	// Detector is the pluggable encoding detection strategy. Implementations
	// inspect raw bytes and return the most probable text encoding along with
	// its name for logging.
	Detector interface {
		Detect(data []byte) (encoding.Encoding, string, error)
	}

	// HeuristicDetector detects encodings by scoring candidate decodings.
	//
	// Detection order: byte-order marks first (UTF-8, UTF-16 LE/BE), then
	// valid UTF-8, then each single-byte candidate decoded in full with the
	// decoding containing the fewest replacement and C1 control characters
	// winning. Ties resolve to the earlier candidate.
	HeuristicDetector struct {
		candidates []candidate
	}

	candidate struct {
		name string
		enc  encoding.Encoding
	}
)

var _ Detector = (*HeuristicDetector)(nil)

// NewHeuristicDetector creates a detector with the default candidate set:
// Windows-1252, ISO-8859-1, Windows-1251.
func NewHeuristicDetector() *HeuristicDetector {
	return &HeuristicDetector{
		candidates: []candidate{
			{"windows-1252", charmap.Windows1252},
			{"iso-8859-1", charmap.ISO8859_1},
			{"windows-1251", charmap.Windows1251},
		},
	}
}

// Detect returns the most probable encoding of data.
func (d *HeuristicDetector) Detect(data []byte) (encoding.Encoding, string, error) {
	if enc, name, ok := detectBOM(data); ok {
		return enc, name, nil
	}

	if utf8.Valid(data) {
		return unicode.UTF8, "utf-8", nil
	}

	var (
		best      encoding.Encoding
		bestName  string
		bestScore = -1
	)

	for _, c := range d.candidates {
		decoded, err := c.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}

		score := penalty(decoded)
		if bestScore == -1 || score < bestScore {
			best = c.enc
			bestName = c.name
			bestScore = score
		}
	}

	if best == nil {
		return nil, "", fmt.Errorf("%w: no candidate encoding decodes the input", ErrDecode)
	}

	return best, bestName, nil
}

// DecodeText detects the encoding of data and decodes it to a UTF-8 string.
func DecodeText(detector Detector, data []byte) (string, error) {
	enc, _, err := detector.Detect(data)
	if err != nil {
		return "", err
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	// Strip a UTF-8 BOM left over after transcoding so the first header
	// field name is clean.
	decoded = bytes.TrimPrefix(decoded, []byte{0xEF, 0xBB, 0xBF})

	return string(decoded), nil
}

// detectBOM recognizes byte-order marks for UTF-8 and UTF-16.
func detectBOM(data []byte) (encoding.Encoding, string, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return unicode.UTF8, "utf-8", true
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), "utf-16le", true
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), "utf-16be", true
	}

	return nil, "", false
}

// penalty scores a decoded byte sequence: replacement runes and C1 control
// characters indicate a wrong single-byte decoding.
func penalty(decoded []byte) int {
	score := 0

	for _, r := range string(decoded) {
		if r == utf8.RuneError || (r >= 0x80 && r <= 0x9F) {
			score++
		}
	}

	return score
}
