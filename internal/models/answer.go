package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/TraderInsightsLab/Sistem/internal/games"
)

type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueText
	ValueNumber
	ValueList
)

// AnswerValue is the raw answer: a string, a number or an ordered list of strings.
type AnswerValue struct {
	kind   ValueKind
	text   string
	number float64
	list   []string
}

func TextValue(s string) AnswerValue { return AnswerValue{kind: ValueText, text: s} }
func NumberValue(n float64) AnswerValue { return AnswerValue{kind: ValueNumber, number: n} }
func ListValue(items ...string) AnswerValue {
	return AnswerValue{kind: ValueList, list: append([]string(nil), items...)}
}

func (v AnswerValue) Kind() ValueKind { return v.kind }
func (v AnswerValue) Text() string { return v.text }
func (v AnswerValue) Number() float64 { return v.number }
func (v AnswerValue) List() []string { return append([]string(nil), v.list...) }

// IsZero reports a missing answer: no value, an empty string or an empty list.
func (v AnswerValue) IsZero() bool {
	switch v.kind {
	case ValueText:
		return strings.TrimSpace(v.text) == ""
	case ValueNumber:
		return false
	case ValueList:
		return len(v.list) == 0
	}
	return true
}

// String renders the value for the analysis narrative; lists are comma-joined.
func (v AnswerValue) String() string {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case ValueList:
		return strings.Join(v.list, ",")
	}
	return ""
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueText:
		return json.Marshal(v.text)
	case ValueNumber:
		return json.Marshal(v.number)
	case ValueList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return []byte("null"), nil
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("answer list must contain strings: %w", err)
		}
		*v = AnswerValue{kind: ValueList, list: list}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("answer must be a string, number or list of strings")
		}
		*v = NumberValue(n)
	}
	return nil
}

// Answer is one response to one catalog question.
type Answer struct {
	QuestionID string      `json:"questionId"`
	Value      AnswerValue `json:"answer"`
	// Timestamp is the client clock in epoch milliseconds.
	Timestamp    int64         `json:"timestamp"`
	ResponseTime int64         `json:"responseTime"`
	GameResults  *games.Result `json:"gameResults,omitempty"`
}

// Clone returns a deep copy.
func (a Answer) Clone() Answer {
	out := a
	if a.Value.list != nil {
		out.Value.list = append([]string(nil), a.Value.list...)
	}
	if a.GameResults != nil {
		r := *a.GameResults
		r.Metrics = maps.Clone(a.GameResults.Metrics)
		out.GameResults = &r
	}
	return out
}
