package recognize

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
)

const (
	mediaTypeJPEG = "image/jpeg"

	// resizeQuality is the JPEG quality of a downscaled image.
	resizeQuality = 90
)

// Image is a captured photo ready to send to a model.
type Image struct {
	Data      []byte
	MediaType string
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// LoadImage reads the capture at path. When maxEdge is positive and the image
// is larger, it is downscaled in memory so its longest edge is maxEdge. The
// file on disk is never modified.
func LoadImage(path string, maxEdge int) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	if maxEdge <= 0 {
		return &Image{Data: data, MediaType: mediaTypeJPEG}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", path, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxEdge && bounds.Dy() <= maxEdge {
		return &Image{Data: data, MediaType: mediaTypeJPEG}, nil
	}

	resized := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(resizeQuality)); err != nil {
		return nil, fmt.Errorf("encoding resized image: %w", err)
	}

	return &Image{Data: buf.Bytes(), MediaType: mediaTypeJPEG}, nil
}
