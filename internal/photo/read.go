package photo

import (
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned by ReadLimited when the input exceeds the cap.
var ErrTooLarge = errors.New("photo too large")

// ReadLimited reads all of r up to max bytes. Inputs over the cap return
// ErrTooLarge, and a read error mid-stream is an error rather than a
// silently truncated photo.
func ReadLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, max)
	}
	return data, nil
}
