// Package ingest reads raw activity records from upstream producers: JSON or
// JSONL streams and a spool directory of JSONL files.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/hay-kot/pulse/internal/core/activity"
)

// Decode reads every record from r. The input is either a JSON array of
// records or a sequence of JSON objects, one per line or concatenated.
// Records without an id are assigned a random one.
func Decode(r io.Reader) ([]activity.RawRecord, error) {
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	dec := json.NewDecoder(br)

	if first == '[' {
		var records []activity.RawRecord
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode record array: %w", err)
		}
		for i := range records {
			ensureID(&records[i])
		}
		return records, nil
	}

	var records []activity.RawRecord
	for {
		var rec activity.RawRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records, fmt.Errorf("decode record %d: %w", len(records)+1, err)
		}
		ensureID(&rec)
		records = append(records, rec)
	}
	return records, nil
}

// DecodeLine decodes a single JSONL line. Blank lines yield ok=false.
func DecodeLine(line []byte) (rec activity.RawRecord, ok bool, err error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return rec, false, nil
	}
	if err := json.Unmarshal(line, &rec); err != nil {
		return rec, false, err
	}
	ensureID(&rec)
	return rec, true, nil
}

func ensureID(rec *activity.RawRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
