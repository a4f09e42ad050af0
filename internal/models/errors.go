package models

import (
	"errors"
	"fmt"
)

var (
	ErrFetchFailure    = errors.New("market data fetch failed")
	ErrEncoding        = errors.New("payload cannot be canonically encoded")
	ErrStoreConflict   = errors.New("concurrent source hash modification")
	ErrCycleInProgress = errors.New("poll cycle already running")
)

// FetchError aborts a whole cycle; nothing was hashed or stored.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v: %v", ErrFetchFailure, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailure, e.Err}
}

// EncodingError names the quote field that blocked canonical serialization.
type EncodingError struct {
	ItemID string
	Field  string
	Value  float64
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%v: %s.%s=%v", ErrEncoding, e.ItemID, e.Field, e.Value)
}

func (e *EncodingError) Unwrap() error {
	return ErrEncoding
}
