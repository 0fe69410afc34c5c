package mimetypes

import "mime"

type MIME string

const (
	Unknown   MIME = "unknown"
	TextPlain MIME = "text/plain"

	ApplicationJSON MIME = "application/json"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWEBP MIME = "image/webp"
	ImageBMP  MIME = "image/bmp"
	ImageTIFF MIME = "image/tiff"
)

// SupportedImages lists the formats accepted by image moderation.
var SupportedImages = []MIME{ImageJPEG, ImagePNG, ImageGIF, ImageWEBP}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

// IsSupportedImage reports whether the detected content type is one of SupportedImages.
func IsSupportedImage(detected string) bool {
	for _, m := range SupportedImages {
		if _, ok := Matches(detected, m); ok {
			return true
		}
	}
	return false
}
