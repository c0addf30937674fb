package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Markers bounding the managed array inside the host document.
const (
	OpenMarker  = "const vpsServices = ["
	CloseMarker = "];"

	recordsAssignment = "const vpsServices = "
)

// span locates an assigned JSON value inside a document.
// doc[start:valueStart] is the assignment prefix and doc[valueStart:valueEnd]
// the JSON value; the rest of the close marker follows at valueEnd.
type span struct {
	start, valueStart, valueEnd int
}

// locateAssignment finds openMarker and the JSON value that follows prefix.
// The value ends at the nearest closeMarker, unless the value itself decodes
// cleanly and is directly followed by closeMarker, in which case that end
// wins. This keeps a "];" inside a string literal from truncating the span.
func locateAssignment(doc, openMarker, prefix, closeMarker string) (span, error) {
	start := strings.Index(doc, openMarker)
	if start < 0 {
		return span{}, fmt.Errorf("%w: opening marker %q not found", ErrParse, openMarker)
	}
	valueStart := start + len(prefix)

	rel := strings.Index(doc[start+len(openMarker):], closeMarker)
	if rel < 0 {
		return span{}, fmt.Errorf("%w: closing marker %q not found after %q", ErrParse, closeMarker, openMarker)
	}
	nearest := start + len(openMarker) + rel

	dec := json.NewDecoder(strings.NewReader(doc[valueStart:]))
	var value json.RawMessage
	if err := dec.Decode(&value); err == nil {
		// the marker's first byte is the value's own closing bracket
		valueEnd := valueStart + int(dec.InputOffset())
		if strings.HasPrefix(doc[valueEnd-1:], closeMarker) {
			return span{start: start, valueStart: valueStart, valueEnd: valueEnd}, nil
		}
	}

	return span{start: start, valueStart: valueStart, valueEnd: nearest + 1}, nil
}

// LoadDocument extracts the raw record objects embedded in doc.
func LoadDocument(doc string) ([]RawRecord, error) {
	sp, err := locateAssignment(doc, OpenMarker, recordsAssignment, CloseMarker)
	if err != nil {
		return nil, err
	}

	var records []RawRecord
	if err := json.Unmarshal([]byte(doc[sp.valueStart:sp.valueEnd]), &records); err != nil {
		return nil, fmt.Errorf("%w: decoding record array: %v", ErrParse, err)
	}
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrParse, i)
		}
	}
	return records, nil
}

// SaveDocument returns doc with the record array replaced by records.
// Bytes outside the marker span are left untouched. The original doc must
// contain a well-formed span; on any error no text is produced.
func SaveDocument(doc string, records []Record) (string, error) {
	sp, err := locateAssignment(doc, OpenMarker, recordsAssignment, CloseMarker)
	if err != nil {
		return "", err
	}

	encoded, err := encodeRecords(records)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(doc) + len(encoded))
	b.WriteString(doc[:sp.start])
	b.WriteString(recordsAssignment)
	b.Write(encoded)
	b.WriteString(doc[sp.valueEnd:])
	return b.String(), nil
}

// encodeRecords renders records as 4-space indented JSON without HTML escaping.
func encodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encoding records: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
