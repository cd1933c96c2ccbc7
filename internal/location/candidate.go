// Package location resolves a best-effort geographic coordinate for a meal
// photo. Candidates come from several sources with a strict authority order:
// an explicit restaurant selection beats the photo asset's embedded
// coordinate, which beats EXIF, which beats a live device fix. Absence of
// any location is a valid terminal state, not an error.
package location

// Source identifies where a location candidate came from.
type Source string

const (
	SourceRestaurantSelection Source = "restaurant_selection"
	SourcePHAsset             Source = "phasset"
	SourceEXIF                Source = "exif"
	SourceDevice              Source = "device"
	SourceUnknown             Source = "unknown"
)

// Priority returns the authority rank of a source. Lower wins.
func (s Source) Priority() int {
	switch s {
	case SourceRestaurantSelection:
		return 1
	case SourcePHAsset:
		return 2
	case SourceEXIF:
		return 3
	case SourceDevice:
		return 4
	default:
		return 5
	}
}

// Candidate is a coordinate with its provenance.
type Candidate struct {
	Latitude  float64
	Longitude float64
	Source    Source
}
