package ptrx

import "time"

func String(s string) *string { return &s }

// StringOrNil returns nil for the empty string
func StringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func Int(i int) *int { return &i }

func Time(t time.Time) *time.Time { return &t }

// Deref returns the pointed-to value or the zero value
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
