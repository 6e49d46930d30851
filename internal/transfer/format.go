// Package transfer converts product files to canonical import records and
// product graphs back to files. JSON, XML and CSV are supported.
package transfer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"catalog-service/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file contains no records")
	ErrNothingToExport   = errors.New("no products matched the export filters")
)

var extensionFormats = map[string]models.ImportFormat{
	".json": models.ImportFormatJSON,
	".xml":  models.ImportFormatXML,
	".csv":  models.ImportFormatCSV,
}

// ParseFormat validates a format name such as an export query parameter.
func ParseFormat(name string) (models.ImportFormat, error) {
	switch f := models.ImportFormat(strings.ToLower(strings.TrimSpace(name))); f {
	case models.ImportFormatJSON, models.ImportFormatXML, models.ImportFormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// DetectFormat picks the decoder for an upload. The extension must be one of
// .json, .xml or .csv; the content wins when it is recognizably one of the
// other two.
func DetectFormat(filename string, data []byte) (models.ImportFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	byExt, ok := extensionFormats[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q (expected .json, .xml or .csv)", ErrUnsupportedFormat, ext)
	}
	if sniffed, ok := sniff(data); ok {
		return sniffed, nil
	}
	return byExt, nil
}

func sniff(data []byte) (models.ImportFormat, bool) {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch {
		case m.Is("application/json"):
			return models.ImportFormatJSON, true
		case m.Is("text/xml"), m.Is("application/xml"):
			return models.ImportFormatXML, true
		case m.Is("text/csv"):
			return models.ImportFormatCSV, true
		}
	}
	return "", false
}

// ToUTF8 drops a byte order mark and converts UTF-16 input to UTF-8.
func ToUTF8(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode text encoding: %w", err)
	}
	return out, nil
}

// ContentType returns the response content type of a format.
func ContentType(format models.ImportFormat) string {
	switch format {
	case models.ImportFormatXML:
		return "application/xml; charset=utf-8"
	case models.ImportFormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}
