package storage

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hustledb/hustle/internal/hustleerr"
	"github.com/hustledb/hustle/internal/types"
)

// LoadCSV ingests `|`-delimited, line-oriented records into t (spec §6.2).
// For string columns the byte width is the decoded field length; for
// integer columns the field is parsed as a signed decimal and re-encoded
// into the column's native width. One row id is returned per inserted
// line, in file order.
func LoadCSV(t *Table, r io.Reader) ([]RowID, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var ids []RowID
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) != len(t.Schema.Fields) {
			return ids, fmt.Errorf("%w: csv line %d has %d fields, schema has %d", hustleerr.ErrSchema, lineNo, len(fields), len(t.Schema.Fields))
		}

		entries := make([]FieldEntry, len(fields))
		for i, f := range t.Schema.Fields {
			raw, err := decodeCSVField(f, fields[i])
			if err != nil {
				return ids, fmt.Errorf("csv line %d field %q: %w", lineNo, f.Name, err)
			}
			entries[i] = FieldEntry{Raw: raw}
		}

		id, err := t.InsertRecord(entries)
		if err != nil {
			return ids, fmt.Errorf("csv line %d: %w", lineNo, err)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return ids, fmt.Errorf("%w: %v", hustleerr.ErrIO, err)
	}
	return ids, nil
}

func decodeCSVField(f types.Field, raw string) ([]byte, error) {
	switch f.Kind {
	case types.KindString:
		return []byte(raw), nil
	case types.KindFixedBinary:
		b := []byte(raw)
		return zeroExtendLE(b, f.Width()), nil
	case types.KindFloat64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", hustleerr.ErrSchema, err)
		}
		out := make([]byte, 8)
		putFloat64LE(out, v)
		return out, nil
	default:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", hustleerr.ErrSchema, err)
		}
		return encodeLittleEndianInt(v, f.Width()), nil
	}
}

func putFloat64LE(dst []byte, v float64) {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		dst[i] = byte(bits >> (8 * uint(i)))
	}
}
