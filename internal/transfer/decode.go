package transfer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"catalog-service/internal/models"
	"github.com/clbanning/mxj/v2"
)

// ErrNotArray is returned when the file holds a single value instead of a
// list of product records.
var ErrNotArray = errors.New("expected a list of product records")

// FormatError wraps a syntax error of the uploaded file.
type FormatError struct {
	Format models.ImportFormat
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s file: %v", strings.ToUpper(string(e.Format)), e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Decode parses a file into raw records. Records are usually
// map[string]interface{}; anything else is reported by the normalizer.
func Decode(format models.ImportFormat, data []byte) ([]interface{}, error) {
	data, err := ToUTF8(data)
	if err != nil {
		return nil, &FormatError{Format: format, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	switch format {
	case models.ImportFormatJSON:
		return decodeJSON(data)
	case models.ImportFormatXML:
		return decodeXML(data)
	case models.ImportFormatCSV:
		return decodeCSV(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func decodeJSON(data []byte) ([]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, &FormatError{Format: models.ImportFormatJSON, Err: err}
	}
	records, ok := root.([]interface{})
	if !ok {
		return nil, ErrNotArray
	}
	return records, nil
}

// decodeXML expects <products><product>...</product></products>. The root and
// item element names are not checked.
func decodeXML(data []byte) ([]interface{}, error) {
	doc, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, &FormatError{Format: models.ImportFormatXML, Err: err}
	}

	var root interface{}
	for _, v := range doc {
		root = v
	}
	if text, ok := root.(string); ok && strings.TrimSpace(text) == "" {
		return []interface{}{}, nil
	}
	records, ok := unwrapXMLList(root)
	if !ok {
		return nil, ErrNotArray
	}
	return records, nil
}

// unwrapXMLList turns a wrapper element with one repeated child into the list
// of children. A single child element yields a list of one.
func unwrapXMLList(v interface{}) ([]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	var child interface{}
	children := 0
	for key, val := range m {
		if strings.HasPrefix(key, "-") || key == "#text" {
			continue
		}
		child = val
		children++
	}
	if children != 1 {
		return nil, false
	}
	switch c := child.(type) {
	case []interface{}:
		return c, true
	case map[string]interface{}:
		return []interface{}{c}, true
	}
	return nil, false
}

// decodeCSV reads a header row followed by one product per row. A trailing
// " *" on a header marks a required column in templates and is dropped.
func decodeCSV(data []byte) ([]interface{}, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, &FormatError{Format: models.ImportFormatCSV, Err: fmt.Errorf("failed to read header: %w", err)}
	}
	for i := range headers {
		headers[i] = strings.TrimSuffix(strings.TrimSpace(headers[i]), " *")
	}

	records := make([]interface{}, 0)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &FormatError{Format: models.ImportFormatCSV, Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if blankRow(row) {
			continue
		}
		record := make(map[string]interface{}, len(headers))
		for i, value := range row {
			if i < len(headers) && headers[i] != "" {
				record[headers[i]] = strings.TrimSpace(value)
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
