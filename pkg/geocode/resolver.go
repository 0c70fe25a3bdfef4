package geocode

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const (
	// NoteCityCenter flags coordinates resolved from city/state/zip after
	// the street address failed to match.
	NoteCityCenter = "Geocoded to city center - needs manual review"

	// NoteNotFound is recorded when every stage came up empty.
	NoteNotFound = "Location not found"
)

// Query is one address to resolve. PlaceName is an optional landmark or
// site name used when the street address does not match.
type Query struct {
	Address   string
	City      string
	State     string
	ZipCode   string
	PlaceName string
}

// Resolution is the outcome of a resolve. Latitude and Longitude are both
// set or both nil; Note carries the advisory or failure message.
type Resolution struct {
	Latitude  *float64
	Longitude *float64
	Note      string
}

// Found reports whether the resolution carries coordinates.
func (r Resolution) Found() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Resolver resolves addresses through staged fallback: full street
// address first, then the place name, then city/state/zip.
type Resolver struct {
	client Client
}

// NewResolver creates a Resolver over the given client.
func NewResolver(client Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve runs the fallback chain for one query. Lookup failures in the
// earlier stages fall through to the next stage; only a canceled context
// aborts the chain. A resolution via city/state/zip when a street address
// was present is flagged for manual review.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Resolution, error) {
	log := zap.L().With(zap.String("address", q.Address), zap.String("city", q.City))
	hasAddress := strings.TrimSpace(q.Address) != ""

	if hasAddress {
		query := joinParts(q.Address, q.City, q.State, q.ZipCode)
		loc, err := r.client.Lookup(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, err
			}
			log.Warn("address lookup failed", zap.Error(err))
		} else if loc != nil {
			return resolved(loc, ""), nil
		}
	}

	if q.PlaceName != "" {
		loc, err := r.client.Lookup(ctx, q.PlaceName)
		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, err
			}
			log.Warn("place name lookup failed",
				zap.String("place_name", q.PlaceName), zap.Error(err))
		} else if loc != nil {
			return resolved(loc, ""), nil
		}
	}

	if q.City != "" || q.State != "" || q.ZipCode != "" {
		query := joinParts(q.City, q.State, q.ZipCode)
		loc, err := r.client.Lookup(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, err
			}
			log.Error("city/state/zip lookup failed", zap.Error(err))
			return Resolution{Note: err.Error()}, nil
		}
		if loc == nil {
			return Resolution{Note: NoteNotFound}, nil
		}
		note := ""
		if hasAddress {
			note = NoteCityCenter
		}
		return resolved(loc, note), nil
	}

	return Resolution{Note: NoteNotFound}, nil
}

func resolved(loc *Location, note string) Resolution {
	lat, lon := loc.Latitude, loc.Longitude
	return Resolution{Latitude: &lat, Longitude: &lon, Note: note}
}

func joinParts(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
