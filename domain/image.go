package domain

import "io"

// ImageSource is an opened image reference. Size is in bytes, -1 when the
// backend can't tell it before reading.
type ImageSource struct {
	Ref  string
	Size int64
	Body io.ReadCloser
}
