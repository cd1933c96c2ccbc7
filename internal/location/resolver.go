package location

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Device fix timing. The hard timeout is layered on top of whatever the
// platform geolocation API enforces internally; cached fixes up to
// MaxFixAge old are accepted to avoid cold-GPS stalls.
const (
	DeviceFixTimeout = 3500 * time.Millisecond
	MaxFixAge        = 15 * time.Second
)

// Fix is a device location reading.
type Fix struct {
	Latitude  float64
	Longitude float64
	// Taken is when the fix was measured. Zero means "just now".
	Taken time.Time
}

// FixOptions mirrors the platform geolocation request options.
type FixOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// DeviceProvider yields live device location fixes. Implementations must
// honor ctx cancellation; the resolver aborts the request at the hard
// timeout rather than waiting out a cold GPS.
type DeviceProvider interface {
	CurrentPosition(ctx context.Context, opts FixOptions) (Fix, error)
}

// AssetMetadata is the platform-managed metadata of a gallery photo,
// distinct from EXIF parsed out of the file bytes.
type AssetMetadata struct {
	Latitude  float64
	Longitude float64
	HasGPS    bool
}

// Resolver tracks the single best location candidate for one photo session.
// Safe for concurrent use: the prefetcher reads Best while a late device fix
// or an explicit restaurant selection may still arrive.
type Resolver struct {
	mu   sync.Mutex
	best *Candidate
}

// NewResolver returns an empty Resolver with no candidate.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Offer installs c as the current best candidate if it outranks the existing
// one (strictly lower priority number). A later-arriving higher-priority
// candidate replaces the current best; a lower-priority one is dropped.
// Returns true if c became the current best.
func (r *Resolver) Offer(c Candidate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.best != nil && c.Source.Priority() >= r.best.Source.Priority() {
		log.Debug().
			Str("offered", string(c.Source)).
			Str("current", string(r.best.Source)).
			Msg("Location candidate dropped, current best outranks it")
		return false
	}

	r.best = &c
	log.Debug().
		Str("source", string(c.Source)).
		Float64("lat", c.Latitude).
		Float64("lng", c.Longitude).
		Msg("Location candidate installed")
	return true
}

// Best returns the current best candidate, if any.
func (r *Resolver) Best() (Candidate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.best == nil {
		return Candidate{}, false
	}
	return *r.best, true
}

// MetadataExtractor parses EXIF GPS out of raw photo bytes. Matches
// photo.ExtractMetadata; declared here so the resolver does not import
// the photo package.
type MetadataExtractor func(r io.ReadSeeker) (lat, lng float64, ok bool)

// Resolve runs the priority chain for a photo and offers each discovered
// candidate to the resolver:
//
//  1. photo-asset-embedded coordinate (phasset, priority 2)
//  2. EXIF-derived coordinate (priority 3)
//  3. live device fix with a hard timeout (priority 4)
//
// An explicit restaurant selection (priority 1) arrives later through
// Offer, never through Resolve. All failures degrade to "no location".
func (r *Resolver) Resolve(ctx context.Context, asset *AssetMetadata, exifReader io.ReadSeeker, extract MetadataExtractor, dev DeviceProvider) (Candidate, bool) {
	if asset != nil && asset.HasGPS {
		r.Offer(Candidate{Latitude: asset.Latitude, Longitude: asset.Longitude, Source: SourcePHAsset})
		return r.Best()
	}

	if exifReader != nil && extract != nil {
		if lat, lng, ok := extract(exifReader); ok {
			r.Offer(Candidate{Latitude: lat, Longitude: lng, Source: SourceEXIF})
			return r.Best()
		}
	}

	if dev != nil {
		fixCtx, cancel := context.WithTimeout(ctx, DeviceFixTimeout)
		defer cancel()

		fix, err := dev.CurrentPosition(fixCtx, FixOptions{
			HighAccuracy: true,
			Timeout:      DeviceFixTimeout,
			MaximumAge:   MaxFixAge,
		})
		switch {
		case err != nil:
			// Degrade to no location; downstream asks the user instead.
			log.Warn().Err(err).Msg("Device location fix failed, continuing without location")
		case !fix.Taken.IsZero() && time.Since(fix.Taken) > MaxFixAge:
			log.Warn().Time("taken", fix.Taken).Msg("Device fix too stale, discarding")
		default:
			r.Offer(Candidate{Latitude: fix.Latitude, Longitude: fix.Longitude, Source: SourceDevice})
		}
	}

	return r.Best()
}
