package catalog

import (
	"bytes"
	"strconv"
	"time"
)

// Tautulli serializes many numeric fields as strings, and empty values as
// "" or null. The flex types below accept all three shapes so one odd row
// cannot break a whole page decode.

type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	*f = flexString(data)
	return nil
}

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	n, ok := parseFlexInt(data)
	if ok {
		*f = flexInt(n)
	}
	return nil
}

type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	n, ok := parseFlexInt(data)
	if ok {
		*f = flexInt64(n)
	}
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// epochTime is a unix timestamp; zero, empty and null all mean "not set".
type epochTime int64

func (e *epochTime) UnmarshalJSON(data []byte) error {
	n, ok := parseFlexInt(data)
	if ok {
		*e = epochTime(n)
	}
	return nil
}

// Time returns the timestamp, or nil when not set.
func (e epochTime) Time() *time.Time {
	if e == 0 {
		return nil
	}
	t := time.Unix(int64(e), 0)
	return &t
}

func parseFlexInt(data []byte) (int64, bool) {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
