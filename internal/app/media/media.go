/*
Package media validates image and audio attachments of chat messages and names the
objects they are stored under.
*/
package media

import (
	"path/filepath"
	"strings"
	"time"

	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/randx"
)

// Kind is the message type an uploaded object belongs to.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

const (
	// MaxImageSizeMB is the maximum allowed image size in megabytes.
	MaxImageSizeMB = 5

	// MaxAudioSizeMB is the maximum allowed voice message size in megabytes.
	MaxAudioSizeMB = 10

	// PresignedURLDuration is how long upload and download URLs stay valid.
	PresignedURLDuration = 5 * time.Minute
)

// extToMIME maps file extensions to their MIME type, per kind.
var extToMIME = map[Kind]map[string]string{
	KindImage: {
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".gif":  "image/gif",
	},
	KindAudio: {
		".webm": "audio/webm",
		".ogg":  "audio/ogg",
		".mp3":  "audio/mpeg",
		".m4a":  "audio/mp4",
		".wav":  "audio/wav",
	},
}

// ParseKind returns the kind named by s.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	_, ok := extToMIME[k]
	return k, ok
}

// MaxSize returns the size limit of k in bytes.
func (k Kind) MaxSize() int64 {
	return int64(k.maxSizeMB()) * 1024 * 1024
}

func (k Kind) maxSizeMB() int {
	if k == KindAudio {
		return MaxAudioSizeMB
	}
	return MaxImageSizeMB
}

// dir is the key prefix of k's objects.
func (k Kind) dir() string {
	return string(k) + "s"
}

// ValidateFileSize checks if the provided file size is within the limit of k.
func ValidateFileSize(k Kind, fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > k.MaxSize() {
		return errs.NewError(errs.ErrFileSizeTooLarge, k.maxSizeMB())
	}

	return nil
}

// ValidateFileType checks that the file name's extension and the MIME type agree
// and are allowed for k.
func ValidateFileType(k Kind, fileName string, mimeType string) *errs.CustomError {
	allowed, ok := extToMIME[k]
	if !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	lowerMimeType := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(lowerMimeType, ';'); i >= 0 {
		lowerMimeType = strings.TrimSpace(lowerMimeType[:i])
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	expectedMIME, ok := allowed[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// Validate runs both the type and the size checks.
func Validate(k Kind, fileName, mimeType string, fileSize int64) *errs.CustomError {
	if err := ValidateFileType(k, fileName, mimeType); err != nil {
		return err
	}
	return ValidateFileSize(k, fileSize)
}

// NewKey returns a fresh object key for a file uploaded by owner.
func NewKey(k Kind, owner, fileName string) string {
	return randx.MediaKey(owner, k.dir(), strings.ToLower(filepath.Ext(fileName)))
}

// ParseKey splits a key issued by NewKey into its kind and owner.
func ParseKey(key string) (Kind, string, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	for _, k := range []Kind{KindImage, KindAudio} {
		if parts[0] == k.dir() {
			return k, parts[1], true
		}
	}
	return "", "", false
}

// OwnedBy reports whether key was issued to owner by NewKey.
func OwnedBy(key, owner string) bool {
	_, keyOwner, ok := ParseKey(key)
	return ok && owner != "" && keyOwner == owner
}
