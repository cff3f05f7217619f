package device

import (
	"strconv"
	"strings"
)

// ParseFloat converts a reply field, tolerating surrounding whitespace.
func ParseFloat(field, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &ParseError{Field: field, Value: value, Err: err}
	}
	return f, nil
}

// ParseInt converts a reply field. Leading '+' signs are accepted.
func ParseInt(field, value string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &ParseError{Field: field, Value: value, Err: err}
	}
	return i, nil
}

// ParseFloats splits a separated list of numbers.
func ParseFloats(field, value, sep string) ([]float64, error) {
	parts := strings.Split(strings.TrimSpace(value), sep)
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := ParseFloat(field, p)
		if err != nil {
			return nil, err
		}
		values = append(values, f)
	}
	return values, nil
}
