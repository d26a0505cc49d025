package extract

import "fmt"

// ImageRef identifies the image to extract from: either a remote URL or an
// uploaded payload. The zero value is not a valid reference.
type ImageRef struct {
	url      string
	data     []byte
	filename string
	isBytes  bool
}

// FromURL references a remote image.
func FromURL(url string) ImageRef {
	return ImageRef{url: url}
}

// FromBytes references an uploaded image. filename is informational.
func FromBytes(data []byte, filename string) ImageRef {
	return ImageRef{data: data, filename: filename, isBytes: true}
}

// IsURL reports whether the reference is a remote URL.
func (r ImageRef) IsURL() bool { return !r.isBytes }

// URL returns the remote URL, empty for uploads.
func (r ImageRef) URL() string { return r.url }

// Data returns the uploaded bytes, nil for URLs.
func (r ImageRef) Data() []byte { return r.data }

// Filename returns the upload's filename, if any.
func (r ImageRef) Filename() string { return r.filename }

// String identifies the reference in logs, call records and batch results.
func (r ImageRef) String() string {
	if !r.isBytes {
		return r.url
	}
	if r.filename == "" {
		return fmt.Sprintf("upload (%d bytes)", len(r.data))
	}
	return "upload:" + r.filename
}
