// README: Google Maps backed geocoding, reverse geocoding and driving routes with typed resolution errors.
package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

var (
	ErrAddressNotFound  = apperr.Resolution("address not found")
	ErrRouteComputation = apperr.Resolution("route computation failed")
)

// Client is the subset of *maps.Client the resolver needs.
type Client interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// Address is a resolved location with its canonical "City, Street, House" text.
type Address struct {
	Text  string
	City  string
	Point types.Point
}

type Route struct {
	DistanceM int
	DurationS int
}

func (r Route) DistanceKm() float64  { return float64(r.DistanceM) / 1000 }
func (r Route) DurationMin() float64 { return float64(r.DurationS) / 60 }

// Resolver converts free text and coordinates to canonical addresses and
// computes driving routes through Google Maps.
type Resolver struct {
	client   Client
	language string
}

// NewResolver creates a Resolver with the given API key.
func NewResolver(apiKey, language string) (*Resolver, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return NewResolverWithClient(client, language), nil
}

func NewResolverWithClient(client Client, language string) *Resolver {
	return &Resolver{client: client, language: language}
}

// Geocode resolves free text to an address.
func (s *Resolver) Geocode(ctx context.Context, text string) (Address, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Address{}, ErrAddressNotFound
	}
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  text,
		Language: s.language,
	})
	if err != nil {
		return Address{}, classify(err, ErrAddressNotFound, "geocode")
	}
	return firstAddress(results)
}

// GeocodeInCity resolves text with city prepended, since street names alone
// are ambiguous across cities.
func (s *Resolver) GeocodeInCity(ctx context.Context, city, text string) (Address, error) {
	return s.Geocode(ctx, scopeToCity(city, text))
}

func (s *Resolver) ReverseGeocode(ctx context.Context, p types.Point) (Address, error) {
	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
		Language: s.language,
	})
	if err != nil {
		return Address{}, classify(err, ErrAddressNotFound, "reverse geocode")
	}
	addr, err := firstAddress(results)
	if err != nil {
		return Address{}, err
	}
	addr.Point = p
	return addr, nil
}

// Route returns the driving distance and duration between two points.
func (s *Resolver) Route(ctx context.Context, from, to types.Point) (Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      from.String(),
		Destination: to.String(),
		Mode:        maps.TravelModeDriving,
		Language:    s.language,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Route{}, classify(err, ErrRouteComputation, "directions")
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrRouteComputation
	}

	var out Route
	for _, leg := range routes[0].Legs {
		out.DistanceM += leg.Distance.Meters
		out.DurationS += int(leg.Duration.Seconds())
	}
	return out, nil
}

func scopeToCity(city, text string) string {
	text = strings.TrimSpace(text)
	city = strings.TrimSpace(city)
	if city == "" || strings.HasPrefix(strings.ToLower(text), strings.ToLower(city)) {
		return text
	}
	return city + ", " + text
}

// classify separates "nothing matched" answers from provider failures.
func classify(err error, notFound error, op string) error {
	msg := err.Error()
	if strings.Contains(msg, "ZERO_RESULTS") || strings.Contains(msg, "NOT_FOUND") {
		return notFound
	}
	return apperr.Provider("maps "+op, err)
}

func firstAddress(results []maps.GeocodingResult) (Address, error) {
	for _, res := range results {
		addr, ok := canonical(res)
		if ok {
			return addr, nil
		}
	}
	return Address{}, ErrAddressNotFound
}

func canonical(res maps.GeocodingResult) (Address, bool) {
	var city, street, house string
	for _, c := range res.AddressComponents {
		switch {
		case hasType(c.Types, "locality"):
			city = c.LongName
		case hasType(c.Types, "route"):
			street = c.ShortName
		case hasType(c.Types, "street_number"):
			house = c.LongName
		}
	}
	if city == "" || street == "" {
		return Address{}, false
	}
	parts := []string{city, street}
	if house != "" {
		parts = append(parts, house)
	}
	return Address{
		Text: strings.Join(parts, ", "),
		City: city,
		Point: types.Point{
			Lat: res.Geometry.Location.Lat,
			Lng: res.Geometry.Location.Lng,
		},
	}, true
}

func hasType(ts []string, want string) bool {
	for _, t := range ts {
		if t == want {
			return true
		}
	}
	return false
}
