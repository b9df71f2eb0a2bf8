package filestorage

import (
	"mime/multipart"
)

// UploadStore receives uploaded files and hands back a temporary artifact
// path. The caller owns the artifact and must Remove it on every exit path
// once processing is done.
type UploadStore interface {
	// SaveUpload persists an uploaded file and returns its path on disk.
	// The original file extension is preserved so decoders can dispatch on it.
	SaveUpload(fileHeader *multipart.FileHeader) (string, error)

	// Remove deletes a previously saved artifact.
	Remove(path string) error
}
