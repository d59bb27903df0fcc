// Package history keeps the per-manga record of merged volumes.
//
// Each manga folder may hold a history.json object mapping volume names to
// entries. Key order is meaningful: the last key is the most recently added
// volume, and re-merging a volume replaces its entry without moving it.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FileName is the history file kept inside every manga folder.
const FileName = "history.json"

// DateLayout is the format of Entry.Date.
const DateLayout = "2006-01-02 15:04:05"

// Entry records one merged volume
type Entry struct {
	Type     string   `json:"type"`     // "PDF" or "CBZ"
	Chapters []string `json:"chapters"` // chapters as selected by the user
	Date     string   `json:"date"`
}

// NewEntry builds an entry stamped with t.
func NewEntry(kind string, chapters []string, t time.Time) Entry {
	copied := make([]string, len(chapters))
	copy(copied, chapters)
	return Entry{
		Type:     strings.ToUpper(kind),
		Chapters: copied,
		Date:     t.Format(DateLayout),
	}
}

// LastChapter returns the last selected chapter or "None".
func (e Entry) LastChapter() string {
	if len(e.Chapters) == 0 {
		return "None"
	}
	return e.Chapters[len(e.Chapters)-1]
}

// History is an insertion-ordered map of volume name to entry.
type History struct {
	keys    []string
	entries map[string]Entry
}

// New returns an empty history.
func New() *History {
	return &History{entries: make(map[string]Entry)}
}

// Len returns the number of volumes.
func (h *History) Len() int {
	return len(h.keys)
}

// Volumes returns the volume names in file order.
func (h *History) Volumes() []string {
	return append([]string(nil), h.keys...)
}

// Get returns the entry for a volume.
func (h *History) Get(volume string) (Entry, bool) {
	e, ok := h.entries[volume]
	return e, ok
}

// Set adds a volume at the end, or replaces an existing one in place.
func (h *History) Set(volume string, e Entry) {
	if h.entries == nil {
		h.entries = make(map[string]Entry)
	}
	if _, exists := h.entries[volume]; !exists {
		h.keys = append(h.keys, volume)
	}
	h.entries[volume] = e
}

// Delete removes a volume and reports whether it was present.
func (h *History) Delete(volume string) bool {
	if _, exists := h.entries[volume]; !exists {
		return false
	}
	delete(h.entries, volume)
	for i, k := range h.keys {
		if k == volume {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
	return true
}

// Last returns the most recently added volume.
func (h *History) Last() (string, Entry, bool) {
	if len(h.keys) == 0 {
		return "", Entry{}, false
	}
	k := h.keys[len(h.keys)-1]
	return k, h.entries[k], true
}

// MarshalJSON writes the entries as one object, keeping key order.
func (h *History) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range h.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(h.entries[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of entries, remembering key order. A repeated
// key keeps its first position and its last value.
func (h *History) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("history must be a JSON object, got %v", tok)
	}

	fresh := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected history key %v", tok)
		}
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("error decoding entry %q: %w", key, err)
		}
		fresh.Set(key, e)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*h = *fresh
	return nil
}
