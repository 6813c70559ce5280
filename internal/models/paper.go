// Package models defines core data structures for papers, search requests, and results.
package models

import (
	"encoding/json"
	"strings"
)

// Paper represents a stored academic paper record. ID is the stable external
// identifier and the join key between the store and the ranking model result
// spaces; it never changes after ingest.
type Paper struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Abstract   string     `json:"abstract"`
	Authors    StringList `json:"authors"`
	Categories StringList `json:"categories"`
	UpdateDate string     `json:"update_date"`
}

// StringList is a list of strings that tolerates the source data's dynamic
// shape: a JSON array, or a single whitespace/comma-delimited string. All
// reads coerce to a canonical []string before any filter or formatting logic.
type StringList []string

// UnmarshalJSON accepts either a JSON array of strings or a delimited string.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = SplitList(s)
	return nil
}

// SplitList splits a whitespace- or comma-delimited string into trimmed,
// non-empty elements.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// CoerceStringList converts a dynamically typed field value (string, []string,
// or []interface{}) into a canonical string list. Used at the store-adapter
// boundary where stored field values come back untyped.
func CoerceStringList(v interface{}) StringList {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return SplitList(val)
	case []string:
		return val
	case []interface{}:
		out := make(StringList, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
