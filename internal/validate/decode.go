package validate

import (
	"bytes"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/tidwall/gjson"
)

// maxSafeInteger mirrors the largest integer a JSON number can carry
// without precision loss.
const maxSafeInteger = 1<<53 - 1

var utcTimestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z$`)

// instantLayouts are the ISO-8601 shapes accepted for instants, tried in order.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
}

// Decoder reads typed fields out of a JSON object body. Every problem is
// recorded and decoding continues, so one pass reports every bad field.
// Keys that are never asked for are ignored.
type Decoder struct {
	obj gjson.Result
	vs  Violations
}

// NewDecoder parses body. An empty body is read as an empty object. A body
// that is not a JSON object yields a decoder whose only violation says so.
func NewDecoder(body []byte) *Decoder {
	d := &Decoder{}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	if !gjson.ValidBytes(trimmed) {
		d.vs.Type("", "body must be a JSON object")
		return d
	}
	res := gjson.ParseBytes(trimmed)
	if !res.IsObject() {
		d.vs.Type("", "body must be a JSON object")
		return d
	}
	d.obj = res
	return d
}

// Violations returns what the decoder has collected so far.
func (d *Decoder) Violations() Violations {
	return d.vs
}

// Malformed reports whether the body itself could not be read as an object.
func (d *Decoder) Malformed() bool {
	return !d.obj.Exists()
}

func (d *Decoder) lookup(name string, nullable bool) (gjson.Result, bool, bool) {
	if !d.obj.Exists() {
		return gjson.Result{}, false, false
	}
	res := d.obj.Get(gjson.Escape(name))
	if !res.Exists() {
		return res, false, false
	}
	if res.Type == gjson.Null {
		if !nullable {
			d.vs.Type(name, name+" must not be null")
		}
		return res, true, true
	}
	return res, true, false
}

// String reads a non-empty string field.
func (d *Decoder) String(name string, nullable bool) Field[string] {
	return d.str(name, nullable, false)
}

// Text reads a string field that may be empty; callers check content.
func (d *Decoder) Text(name string, nullable bool) Field[string] {
	return d.str(name, nullable, true)
}

func (d *Decoder) str(name string, nullable, allowEmpty bool) Field[string] {
	res, ok, isNull := d.lookup(name, nullable)
	switch {
	case !ok:
		return Unset[string]()
	case isNull:
		if !nullable {
			return Unset[string]()
		}
		return Null[string]()
	}
	if res.Type != gjson.String {
		d.vs.Type(name, name+" must be a string")
		return Unset[string]()
	}
	if res.Str == "" && !allowEmpty {
		d.vs.Type(name, name+" must not be empty")
		return Unset[string]()
	}
	return Value(res.Str)
}

// Bool reads a boolean; the strings "true" and "false" are converted.
func (d *Decoder) Bool(name string, nullable bool) Field[bool] {
	res, ok, isNull := d.lookup(name, nullable)
	switch {
	case !ok:
		return Unset[bool]()
	case isNull:
		if !nullable {
			return Unset[bool]()
		}
		return Null[bool]()
	}
	switch res.Type {
	case gjson.True:
		return Value(true)
	case gjson.False:
		return Value(false)
	case gjson.String:
		switch strings.ToLower(res.Str) {
		case "true":
			return Value(true)
		case "false":
			return Value(false)
		}
	}
	d.vs.Type(name, name+" must be a boolean")
	return Unset[bool]()
}

// Int reads an integer; integer-valued strings are converted.
func (d *Decoder) Int(name string, nullable bool) Field[int64] {
	res, ok, isNull := d.lookup(name, nullable)
	switch {
	case !ok:
		return Unset[int64]()
	case isNull:
		if !nullable {
			return Unset[int64]()
		}
		return Null[int64]()
	}
	var raw string
	switch res.Type {
	case gjson.Number:
		raw = res.Raw
	case gjson.String:
		raw = strings.TrimSpace(res.Str)
	default:
		d.vs.Type(name, name+" must be an integer")
		return Unset[int64]()
	}
	n, err := ParseInteger(raw)
	if err != nil {
		d.vs.Type(name, name+" must be an integer")
		return Unset[int64]()
	}
	return Value(n)
}

// Time reads an ISO-8601 timestamp and normalizes it to UTC.
func (d *Decoder) Time(name string, nullable bool) Field[time.Time] {
	res, ok, isNull := d.lookup(name, nullable)
	switch {
	case !ok:
		return Unset[time.Time]()
	case isNull:
		if !nullable {
			return Unset[time.Time]()
		}
		return Null[time.Time]()
	}
	if res.Type != gjson.String {
		d.vs.Type(name, name+" must be an ISO-8601 date string")
		return Unset[time.Time]()
	}
	t, err := ParseInstant(res.Str)
	if err != nil {
		d.vs.Type(name, name+" must be an ISO-8601 date string")
		return Unset[time.Time]()
	}
	return Value(t)
}

// UTCTimes reads an array of strict UTC timestamps (trailing Z). Each
// element is checked independently; any bad element rejects the field.
func (d *Decoder) UTCTimes(name string, nullable bool) Field[[]time.Time] {
	res, ok, isNull := d.lookup(name, nullable)
	switch {
	case !ok:
		return Unset[[]time.Time]()
	case isNull:
		if !nullable {
			return Unset[[]time.Time]()
		}
		return Null[[]time.Time]()
	}
	if !res.IsArray() {
		d.vs.Type(name, name+" must be an array of UTC timestamps")
		return Unset[[]time.Time]()
	}
	out := make([]time.Time, 0)
	bad := false
	for i, el := range res.Array() {
		if el.Type != gjson.String {
			d.vs.Type(name, name+"["+strconv.Itoa(i)+"] must be a UTC timestamp string")
			bad = true
			continue
		}
		t, err := ParseUTCTimestamp(el.Str)
		if err != nil {
			d.vs.Type(name, name+"["+strconv.Itoa(i)+"] must match YYYY-MM-DDTHH:mm:ss[.sss]Z")
			bad = true
			continue
		}
		out = append(out, t)
	}
	if bad {
		return Unset[[]time.Time]()
	}
	return Value(out)
}

// Floats reads an array of exactly n numbers.
func (d *Decoder) Floats(name string, n int, nullable bool) Field[[]float64] {
	res, ok, isNull := d.lookup(name, nullable)
	switch {
	case !ok:
		return Unset[[]float64]()
	case isNull:
		if !nullable {
			return Unset[[]float64]()
		}
		return Null[[]float64]()
	}
	msg := name + " must be an array of " + strconv.Itoa(n) + " numbers"
	if !res.IsArray() {
		d.vs.Type(name, msg)
		return Unset[[]float64]()
	}
	items := res.Array()
	if len(items) != n {
		d.vs.Type(name, msg)
		return Unset[[]float64]()
	}
	out := make([]float64, 0, n)
	for _, el := range items {
		switch el.Type {
		case gjson.Number:
			out = append(out, el.Num)
		case gjson.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(el.Str), 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				d.vs.Type(name, msg)
				return Unset[[]float64]()
			}
			out = append(out, f)
		default:
			d.vs.Type(name, msg)
			return Unset[[]float64]()
		}
	}
	return Value(out)
}

// ParseInstant parses an ISO-8601 timestamp into a UTC time.Time,
// truncated to the millisecond.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, errors.New("not an ISO-8601 timestamp: " + s)
}

// ParseUTCTimestamp accepts only YYYY-MM-DDTHH:mm:ss[.fraction]Z. Digits
// past the millisecond are dropped.
func ParseUTCTimestamp(s string) (time.Time, error) {
	if !utcTimestampRe.MatchString(s) {
		return time.Time{}, errors.New("not a UTC timestamp: " + s)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

// ParseInteger parses a decimal integer. Integral floats such as "3.0" or
// "1e3" are accepted as long as they stay within the safe JSON range.
func ParseInteger(raw string) (int64, error) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > maxSafeInteger {
		return 0, errors.New("not an integer: " + raw)
	}
	return int64(f), nil
}

// CodeUnits returns the length of s in UTF-16 code units, which is how the
// API's length limits are measured.
func CodeUnits(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}
