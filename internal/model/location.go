package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidLocation = errors.New("model: invalid location")

// DefaultRadiusMeters is the geofence radius used when a location does not set one.
const DefaultRadiusMeters = 100.0

type Location struct {
	ID        int64
	Name      string  `validate:"required"`
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`
	Radius    float64 `validate:"gt=0"`
	Address   string
}

func (l Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLocation)
	}
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	return nil
}

// WithDefaults fills the radius when it was left unset.
func (l Location) WithDefaults() Location {
	if l.Radius == 0 {
		l.Radius = DefaultRadiusMeters
	}
	return l
}
