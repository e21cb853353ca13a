package handler

import (
	"errors"
	"net/http"

	"chatrelay/internal/app/media"
	"chatrelay/internal/app/storage"
	"chatrelay/internal/pkg/auth/jwt"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/req"
	"chatrelay/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for generating an upload URL.
type PresignUploadInput struct {
	Kind     string `json:"kind"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// mediaCaller returns the caller's user id, or writes the error response and
// returns false when the caller is anonymous or media storage is off.
func mediaCaller(deps *AppDeps, w http.ResponseWriter, r *http.Request) (string, bool) {
	payload := jwt.GetPayloadFromContext(r)
	if payload == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return "", false
	}

	if deps.StorageService == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
		return "", false
	}

	return payload.ID, true
}

// HandlePresignUpload validates an image or audio attachment and returns a
// presigned PUT URL with the key the message should reference.
func HandlePresignUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := mediaCaller(deps, w, r)
		if !ok {
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		kind, ok := media.ParseKind(input.Kind)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileTypeInvalid))
			return
		}

		if err := media.Validate(kind, input.FileName, input.MimeType, input.FileSize); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		fileKey := media.NewKey(kind, owner, input.FileName)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			media.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		})
	}
}

// HandlePresignDownload redirects to a presigned GET URL for an existing media key.
func HandlePresignDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := mediaCaller(deps, w, r); !ok {
			return
		}

		fileKey := r.URL.Query().Get("k")
		if _, _, ok := media.ParseKey(fileKey); !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if _, err := deps.StorageService.Stat(r.Context(), fileKey); err != nil {
			respondStorageErr(w, r, err)
			return
		}

		url, err := deps.StorageService.PresignDownload(r.Context(), fileKey, media.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}

// HandleUpload accepts a multipart upload (fields "kind" and "file") and stores it
// server-side, for clients that cannot PUT to the bucket directly.
func HandleUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := mediaCaller(deps, w, r)
		if !ok {
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		kind, ok := media.ParseKind(r.FormValue("kind"))
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileTypeInvalid))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		mimeType := header.Header.Get("Content-Type")
		if customErr := media.Validate(kind, header.Filename, mimeType, header.Size); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileKey := media.NewKey(kind, owner, header.Filename)
		location, err := deps.StorageService.Upload(r.Context(), fileKey, mimeType, file)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"fileKey":  fileKey,
			"fileName": header.Filename,
			"location": location,
		})
	}
}

// HandleDeleteMedia removes an object the caller uploaded.
func HandleDeleteMedia(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := mediaCaller(deps, w, r)
		if !ok {
			return
		}

		fileKey := r.URL.Query().Get("k")
		if _, _, ok := media.ParseKey(fileKey); !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if !media.OwnedBy(fileKey, owner) {
			resp.RespondError(w, r, errs.NewError(errs.ErrIdentityMismatch))
			return
		}

		if err := deps.StorageService.Delete(r.Context(), fileKey); err != nil {
			respondStorageErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"fileKey": fileKey})
	}
}

func respondStorageErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrObjectNotFound) {
		resp.RespondError(w, r, errs.NewError(errs.ErrFileNotFound))
		return
	}
	logx.Error(err, "Media storage request failed")
	resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
}
