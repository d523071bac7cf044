package mgrs

import (
	"errors"
	"fmt"
)

// ErrConversion is returned when a coordinate cannot be expressed as MGRS.
var ErrConversion = errors.New("mgrs conversion failed")

// ConversionError describes the rejected coordinate.
type ConversionError struct {
	Lat    float64
	Lon    float64
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s; lat=%v lon=%v; %s", ErrConversion, e.Lat, e.Lon, e.Reason)
}

func (e *ConversionError) Unwrap() error {
	return ErrConversion
}
