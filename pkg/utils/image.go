package utils

import (
	"bytes"

	"github.com/disintegration/imaging"
)

// ThumbSize is the largest side of a thumbnail attached to a chat message.
const ThumbSize = 320

// FitThumb scales an encoded image down to fit ThumbSize and re-encodes it
// as jpeg. Data that does not decode, or already fits, is returned as is.
func FitThumb(data []byte) []byte {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	b := img.Bounds()
	if b.Dx() <= ThumbSize && b.Dy() <= ThumbSize {
		return data
	}
	var buf bytes.Buffer
	if err = imaging.Encode(&buf, imaging.Fit(img, ThumbSize, ThumbSize, imaging.Lanczos), imaging.JPEG); err != nil {
		Log.Warnf("failed encode thumbnail: %+v", err)
		return data
	}
	return buf.Bytes()
}
