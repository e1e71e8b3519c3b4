package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Note is one timestamped comment in a vendor's notes log.
type Note struct {
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// UnmarshalJSON accepts timestamps in any layout older rows were written
// with (RFC3339, timestamps without zone, plain dates). A timestamp that
// cannot be read is left zero and a non-string comment is kept as its text,
// so a stored note is never discarded.
func (n *Note) UnmarshalJSON(data []byte) error {
	var raw struct {
		Comment   any `json:"comment"`
		Timestamp any `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Comment = noteText(raw.Comment)
	n.Timestamp = time.Time{}
	switch ts := raw.Timestamp.(type) {
	case string:
		if t, err := dateparse.ParseIn(strings.TrimSpace(ts), time.UTC); err == nil {
			n.Timestamp = t
		}
	case float64:
		// epoch milliseconds
		n.Timestamp = time.UnixMilli(int64(ts)).UTC()
	}
	return nil
}

func noteText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprint(c)
		}
		return string(b)
	}
}

// NewNote builds a note from a raw comment. The comment is trimmed; an empty
// result is a validation error.
func NewNote(comment string, at time.Time) (Note, error) {
	c := strings.TrimSpace(comment)
	if c == "" {
		return Note{}, &ValidationError{Field: "comment", Message: "Comment is required"}
	}
	return Note{Comment: c, Timestamp: at.UTC()}, nil
}

// DecodeNotes turns whatever is stored in the notes column into a sequence.
// NULL or blank values give an empty sequence; a JSON array is decoded as
// is; a JSON string or free text becomes a single note stamped with legacyAt.
// Notes whose timestamp could not be read are stamped with legacyAt too.
func DecodeNotes(raw string, legacyAt time.Time) []Note {
	s := strings.TrimSpace(raw)
	if s == "" || s == "null" {
		return []Note{}
	}

	switch s[0] {
	case '[':
		var notes []Note
		if err := json.Unmarshal([]byte(s), &notes); err == nil {
			return compact(notes, legacyAt)
		}
		var loose []json.RawMessage
		if err := json.Unmarshal([]byte(s), &loose); err == nil {
			return decodeLoose(loose, legacyAt)
		}
	case '"':
		var text string
		if err := json.Unmarshal([]byte(s), &text); err == nil {
			return single(text, legacyAt)
		}
	case '{':
		var n Note
		if err := json.Unmarshal([]byte(s), &n); err == nil && strings.TrimSpace(n.Comment) != "" {
			return compact([]Note{n}, legacyAt)
		}
	}
	return single(s, legacyAt)
}

// EncodeNotes marshals notes for storage, never producing "null".
func EncodeNotes(notes []Note) ([]byte, error) {
	if notes == nil {
		notes = []Note{}
	}
	return json.Marshal(notes)
}

func single(text string, at time.Time) []Note {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Note{}
	}
	return []Note{{Comment: text, Timestamp: at.UTC()}}
}

// decodeLoose handles arrays mixing note objects with bare strings and other
// scalars.
func decodeLoose(items []json.RawMessage, at time.Time) []Note {
	out := make([]Note, 0, len(items))
	for _, item := range items {
		var n Note
		if err := json.Unmarshal(item, &n); err == nil {
			out = append(out, n)
			continue
		}
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			out = append(out, single(text, at)...)
			continue
		}
		var v any
		if err := json.Unmarshal(item, &v); err == nil {
			out = append(out, single(noteText(v), at)...)
		}
	}
	return compact(out, at)
}

func compact(notes []Note, at time.Time) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if strings.TrimSpace(n.Comment) == "" {
			continue
		}
		if n.Timestamp.IsZero() {
			n.Timestamp = at.UTC()
		}
		out = append(out, n)
	}
	return out
}
