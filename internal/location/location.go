// Package location validates coordinate fixes and provides simple
// LocationSource implementations for hosts without a live GPS.
package location

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/golang/geo/s2"

	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// DefaultCellLevel gives cells roughly one kilometre across.
const DefaultCellLevel = 13

// ErrUnavailable is returned by sources that have no fix to offer.
var ErrUnavailable = errors.New("location unavailable")

// Validate checks that loc is a real point on the globe with a usable
// accuracy radius. maxAccuracy <= 0 disables the accuracy bound.
func Validate(loc model.Location, maxAccuracy float64) error {
	for _, v := range []float64{loc.Latitude, loc.Longitude, loc.AccuracyMeters} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errclass.ErrInvalidLocation.WithMessage("coordinates must be finite")
		}
	}
	if !s2.LatLngFromDegrees(loc.Latitude, loc.Longitude).IsValid() {
		return errclass.ErrInvalidLocation.WithMessagef("out of range: %.6f,%.6f", loc.Latitude, loc.Longitude)
	}
	if loc.AccuracyMeters < 0 {
		return errclass.ErrInvalidLocation.WithMessagef("negative accuracy: %g", loc.AccuracyMeters)
	}
	if maxAccuracy > 0 && loc.AccuracyMeters > maxAccuracy {
		return errclass.ErrInvalidLocation.WithMessagef("accuracy %gm exceeds limit %gm", loc.AccuracyMeters, maxAccuracy)
	}
	return nil
}

// CellToken returns the s2 cell token containing loc at the given level.
func CellToken(loc model.Location, level int) string {
	if level < 0 || level > s2.MaxLevel {
		level = DefaultCellLevel
	}
	cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(loc.Latitude, loc.Longitude))
	return cell.Parent(level).ToToken()
}

// Fixed is a LocationSource that always reports the same point, e.g. a
// fix typed in by the operator.
type Fixed struct {
	Location model.Location
	Now      func() time.Time
}

func (f Fixed) Locate(ctx context.Context) (model.Location, error) {
	if err := ctx.Err(); err != nil {
		return model.Location{}, err
	}
	loc := f.Location
	if loc.CapturedAt.IsZero() {
		now := time.Now
		if f.Now != nil {
			now = f.Now
		}
		loc.CapturedAt = now().UTC()
	}
	return loc, nil
}

// Unavailable is a LocationSource for denied or missing geolocation.
type Unavailable struct{}

func (Unavailable) Locate(context.Context) (model.Location, error) {
	return model.Location{}, ErrUnavailable
}
