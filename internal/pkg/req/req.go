/*
Package req provides helper functions for HTTP request parsing and data binding.

It parses JSON and multipart form bodies under size limits and reports failures as
*errs.CustomError values ready for resp.RespondError.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"chatrelay/internal/pkg/errs"
)

const (
	// MaxJSONBodySize caps the JSON bodies accepted by BindJSON.
	MaxJSONBodySize int64 = 1 << 20

	// MaxFormMemory is the memory ParseMultipartForm may use before spilling
	// file parts to temporary files.
	MaxFormMemory int64 = 8 << 20

	// MaxRequestFileSize caps the whole multipart request body.
	MaxRequestFileSize int64 = 12 << 20
)

// BindJSON decodes the JSON request body into dst. Unknown fields and trailing
// content are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// SetupMultipart limits the request body to MaxRequestFileSize and parses the
// multipart form.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestFileSize)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}
