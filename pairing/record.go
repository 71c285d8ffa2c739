/*
Package pairing assembles matched tiles of two captures into the numbered
paired dataset tree:

	{dest}/{pre_post|pre_pre}/{n:08d}/{disaster}_{n:08d}_{pre|post}_disaster_{i}.png

The pair number n is threaded through phases explicitly; a Phase call
returns the next free number so numbering continues across kinds.
*/
package pairing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrMalformedRecord = errors.New("malformed pair record")

// Kind labels a pairing phase. Both kinds use the same algorithm.
type Kind string

const (
	PrePost Kind = "pre_post"
	PrePre  Kind = "pre_pre"
)

// Record is one (earlier, later) image-id pair. For PrePre both are
// pre-event captures; Post then names the later of the two.
type Record struct {
	Pre  string
	Post string
}

func (r Record) String() string {
	return r.Pre + "," + r.Post
}

// LoadRecords reads a comma-separated pair list with no header.
// Each row needs at least two fields; extras are ignored.
// A shorter row fails the whole load with the file and line.
func LoadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecords(f, path)
}

// ReadRecords is LoadRecords over any reader; name is used in errors.
func ReadRecords(r io.Reader, name string) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: %s:%d: want 2 fields, got %d", ErrMalformedRecord, name, line, len(row))
		}
		pre, post := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if pre == "" || post == "" {
			return nil, fmt.Errorf("%w: %s:%d: empty image id", ErrMalformedRecord, name, line)
		}
		records = append(records, Record{Pre: pre, Post: post})
	}
	return records, nil
}

// ImageIDs returns every image id named in lists, in first-seen order.
func ImageIDs(lists ...[]Record) []string {
	seen := map[string]struct{}{}
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, list := range lists {
		for _, r := range list {
			add(r.Pre)
			add(r.Post)
		}
	}
	return ids
}
