package service

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/wricardo/cloudcover/sim/engine"
)

// Validation messages returned to callers verbatim
const (
	MsgMissingArgument = "Missing argument"
	MsgInvalidAirports = "Provide a valid number of airports"
	MsgInvalidClouds   = "Provide a valid number of clouds"
	MsgInvalidHeight   = "Provide a valid height"
	MsgInvalidWidth    = "Provide a valid width"
)

// Parameter names
const (
	FieldAirports = "airports"
	FieldClouds   = "clouds"
	FieldHeight   = "height"
	FieldWidth    = "width"
)

var (
	ErrMissingArgument  = errors.New(MsgMissingArgument)
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrRunNotFound      = errors.New("run not found")
	ErrDayOutOfRange    = errors.New("day out of range")
	ErrPresetNotFound   = errors.New("preset not found")
)

// InvalidParamError reports a present but unusable parameter
type InvalidParamError struct {
	Field string
}

func (e *InvalidParamError) Error() string {
	switch e.Field {
	case FieldAirports:
		return MsgInvalidAirports
	case FieldClouds:
		return MsgInvalidClouds
	case FieldHeight:
		return MsgInvalidHeight
	case FieldWidth:
		return MsgInvalidWidth
	}
	return "Provide a valid " + e.Field
}

func (e *InvalidParamError) Unwrap() error {
	return ErrInvalidParameter
}

// IsValidationError reports whether err came from input validation
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingArgument) || errors.Is(err, ErrInvalidParameter)
}

type paramField struct {
	name string
	min  int
	dst  *int
}

func fieldsOf(p *engine.Params) []paramField {
	return []paramField{
		{FieldAirports, engine.MinAirports, &p.Airports},
		{FieldClouds, engine.MinClouds, &p.Clouds},
		{FieldHeight, engine.MinHeight, &p.Height},
		{FieldWidth, engine.MinWidth, &p.Width},
	}
}

// ParseQuery extracts and validates the four simulation parameters from a
// query string. All four must be present and non-empty before any of them is
// checked; fields are then checked in the order airports, clouds, height,
// width. Surrounding spaces are ignored when parsing.
func ParseQuery(values url.Values) (engine.Params, error) {
	var params engine.Params
	fields := fieldsOf(&params)

	raw := make([]string, len(fields))
	for i, f := range fields {
		raw[i] = values.Get(f.name)
		if raw[i] == "" {
			return engine.Params{}, ErrMissingArgument
		}
	}

	// A blank value counts as present and fails as a number
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(raw[i]))
		if err != nil || n < f.min {
			return engine.Params{}, &InvalidParamError{Field: f.name}
		}
		*f.dst = n
	}

	return params, nil
}

// ValidateParams applies the query minimums to already decoded params
func ValidateParams(p engine.Params) error {
	for _, f := range fieldsOf(&p) {
		if *f.dst < f.min {
			return &InvalidParamError{Field: f.name}
		}
	}
	return nil
}
