package selector

import (
	"strconv"
	"time"
)

// ToInt converts a selected string to int64, returning fallback (default 0)
// when the value is absent (nil) or unparsable.
func ToInt(fallback ...int64) Converter {
	var def int64
	if len(fallback) > 0 {
		def = fallback[0]
	}
	return func(value *string) any {
		if value == nil {
			return def
		}
		n, err := strconv.ParseInt(*value, 10, 64)
		if err != nil {
			return def
		}
		return n
	}
}

// ToFloat converts a selected string to float64.
func ToFloat(fallback ...float64) Converter {
	var def float64
	if len(fallback) > 0 {
		def = fallback[0]
	}
	return func(value *string) any {
		if value == nil {
			return def
		}
		f, err := strconv.ParseFloat(*value, 64)
		if err != nil {
			return def
		}
		return f
	}
}

// ToBool converts a selected string to bool using strconv.ParseBool (which
// accepts "1"/"0", "t"/"f" and "true"/"false" in their usual cases),
// returning fallback (default false) when the value is absent (nil) or
// unparsable.
func ToBool(fallback ...bool) Converter {
	var def bool
	if len(fallback) > 0 {
		def = fallback[0]
	}
	return func(value *string) any {
		if value == nil {
			return def
		}
		b, err := strconv.ParseBool(*value)
		if err != nil {
			return def
		}
		return b
	}
}

// ToTime converts a selected string to time.Time using layout.
func ToTime(layout string) Converter {
	return func(value *string) any {
		if value == nil {
			return time.Time{}
		}
		t, err := time.Parse(layout, *value)
		if err != nil {
			return time.Time{}
		}
		return t
	}
}
