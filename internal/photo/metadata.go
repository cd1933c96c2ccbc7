package photo

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// Metadata contains EXIF metadata extracted from a photo.
//
// imagemeta reads only the metadata bytes via io.Reader/io.Seeker, so
// extraction works the same on local files and buffered S3 objects without
// loading the full image.
type Metadata struct {
	// GPS coordinates (converted from EXIF Rational format to float64)
	Latitude  float64
	Longitude float64
	HasGPS    bool

	// Timestamp (with timezone if available in OffsetTimeOriginal)
	DateTaken time.Time
	HasDate   bool

	// Camera info
	CameraMake  string
	CameraModel string
}

// ExtractMetadata extracts EXIF metadata from an image using the imagemeta
// library. Supports JPEG, HEIC, HEIF, TIFF; PNG/WebP yield little or nothing
// and that is fine — the location resolver just moves to the next source.
func ExtractMetadata(r io.ReadSeeker) (*Metadata, error) {
	exifData, err := imagemeta.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode EXIF metadata: %w", err)
	}

	meta := &Metadata{}

	// GPS is stored in EXIF as Rational values; the library converts to
	// float64 including reference direction (N/S, E/W).
	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		meta.Latitude = gps.Latitude()
		meta.Longitude = gps.Longitude()
		meta.HasGPS = true
	}

	// Date fallback chain: DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		meta.DateTaken = exifData.DateTimeOriginal()
		meta.HasDate = true
	case !exifData.CreateDate().IsZero():
		meta.DateTaken = exifData.CreateDate()
		meta.HasDate = true
	case !exifData.ModifyDate().IsZero():
		meta.DateTaken = exifData.ModifyDate()
		meta.HasDate = true
	}

	meta.CameraMake = strings.TrimSpace(exifData.Make)
	meta.CameraModel = strings.TrimSpace(exifData.Model)

	log.Debug().
		Bool("has_gps", meta.HasGPS).
		Bool("has_date", meta.HasDate).
		Msg("Photo metadata extraction complete")

	return meta, nil
}

// GPSFromReader is a location.MetadataExtractor adapter: it reads EXIF out
// of r and reports the coordinate if one is present. Extraction errors are
// treated as "no GPS" — a photo without parseable EXIF is normal.
func GPSFromReader(r io.ReadSeeker) (lat, lng float64, ok bool) {
	meta, err := ExtractMetadata(r)
	if err != nil {
		log.Debug().Err(err).Msg("EXIF extraction failed, treating as no GPS")
		return 0, 0, false
	}
	if !meta.HasGPS {
		return 0, 0, false
	}
	return meta.Latitude, meta.Longitude, true
}
