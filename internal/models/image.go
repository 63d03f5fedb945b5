package models

import (
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// Image is an uploaded photo: a seekable byte stream plus an optional filename
// hint used for MIME type inference. The stream position is restored after any
// consumer reads it, so the same Image can be passed to multiple calls.
type Image struct {
	Reader   io.ReadSeeker
	Filename string
}

// MIMEType infers the image's MIME type from the filename extension, falling
// back to image/jpeg when the extension is missing or unknown.
func (i *Image) MIMEType() string {
	ext := strings.ToLower(filepath.Ext(i.Filename))
	if ext != "" {
		if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "image/") {
			return mt
		}
	}
	return "image/jpeg"
}
