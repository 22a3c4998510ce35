package route

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// UnknownDestination is used when neither a destination nor a locality is known.
const UnknownDestination = "Unknown Destination"

// RandSource supplies uniformly distributed values in [0, 1).
type RandSource interface {
	Float64() float64
}

// RandFunc adapts a function to RandSource.
type RandFunc func() float64

// Float64 implements RandSource.
func (f RandFunc) Float64() float64 { return f() }

// Normalizer converts raw upstream records into RouteRecords.
type Normalizer struct {
	rand  RandSource
	newID func() string
}

// NewNormalizer creates a Normalizer. A nil rng uses the global math/rand source.
func NewNormalizer(rng RandSource) *Normalizer {
	if rng == nil {
		rng = RandFunc(rand.Float64)
	}
	return &Normalizer{
		rand:  rng,
		newID: func() string { return uuid.New().String() },
	}
}

// Normalize maps raw onto the canonical shape. index is the record's position
// in its fetch batch and feeds status classification. It never fails: every
// missing field gets its documented default.
func (n *Normalizer) Normalize(raw RawRecord, index int) RouteRecord {
	mapping := MappingFor(raw.Mode)

	departure := NormalizeClock(raw.Field(mapping.Departure...))
	arrival := NormalizeClock(raw.Field(mapping.Arrival...))

	return RouteRecord{
		ID:          n.recordID(raw, mapping),
		Title:       Title(raw.Mode, raw.Field(mapping.Destination...), raw.Field(mapping.Locality...)),
		Description: describe(raw, mapping),
		Image:       ImageFor(raw.Mode),
		Status:      Classify(raw.Field(mapping.Status...), index, false),
		Mode:        raw.Mode,
		Departure:   departure,
		Arrival:     arrival,
		Duration:    DurationBetween(departure, arrival),
		Price:       n.price(raw, mapping),
	}
}

// Title builds "<Mode> to <destination>", falling back to the locality and
// then to UnknownDestination.
func Title(mode Mode, destination, locality string) string {
	dest := CleanDestination(destination)
	if dest == "" {
		dest = CleanDestination(locality)
	}
	if dest == "" {
		dest = UnknownDestination
	}
	return fmt.Sprintf("%s to %s", mode, dest)
}

// SyntheticPrice draws a plausible price for mode from rng.
func SyntheticPrice(mode Mode, rng RandSource) float64 {
	m := MappingFor(mode)
	return Round2(m.PriceBase + rng.Float64()*m.PriceSpread)
}

// MaxFare is the largest upstream price accepted; anything above it is
// treated as garbage and replaced by a synthetic price.
const MaxFare = 10000.0

func (n *Normalizer) price(raw RawRecord, mapping FieldMapping) float64 {
	if p, ok := raw.Number(mapping.Price...); ok && p >= 0 && p <= MaxFare {
		return Round2(p)
	}
	return SyntheticPrice(raw.Mode, n.rand)
}

// recordID derives an id that is stable for the same stop and service. Records
// carrying no identity at all get a random id.
func (n *Normalizer) recordID(raw RawRecord, mapping FieldMapping) string {
	ident := raw.Field(mapping.Identity...)
	if ident == "" {
		line := raw.Field(mapping.Line...)
		scheduled := NormalizeClock(raw.Field(append([]string{"aimed_departure_time"}, mapping.Departure...)...))
		if line != "" && scheduled != Unknown {
			ident = line + "-" + strings.ReplaceAll(scheduled, ":", "")
		}
	}
	if slugify(ident) == "" {
		return raw.Mode.Slug() + "-live-" + n.newID()
	}
	if stop := strings.TrimSpace(raw.Context[ContextStopID]); stop != "" {
		ident = stop + "-" + ident
	}
	return raw.Mode.Slug() + "-" + slugify(ident)
}

func describe(raw RawRecord, mapping FieldMapping) string {
	line := raw.Field(mapping.Line...)
	operator := raw.Field(mapping.Operator...)

	var desc string
	switch {
	case operator != "" && line != "":
		desc = fmt.Sprintf("%s service %s", operator, line)
	case line != "":
		desc = "Service " + line
	case operator != "":
		desc = operator + " service"
	default:
		return mapping.DefaultDescription
	}

	if locality := raw.Field(mapping.Locality...); locality != "" {
		desc += " from " + locality
	}
	if platform := raw.Field(mapping.Platform...); platform != "" {
		desc += ", platform " + platform
	}
	return desc + "."
}

func slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
