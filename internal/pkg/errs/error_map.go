package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// A zero Status is reported as HTTP 200, matching the envelope-style JSON responses.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Could not read the uploaded form.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Signaling Errors
	ErrUnknownEvent:             {Code: ErrUnknownEvent, Message: "Unsupported event %q."},
	ErrEnvelopeMissingRecipient: {Code: ErrEnvelopeMissingRecipient, Message: "Event %q has no recipient."},
	ErrEnvelopeMissingSender:    {Code: ErrEnvelopeMissingSender, Message: "Event %q has no sender."},
	ErrCallTypeInvalid:          {Code: ErrCallTypeInvalid, Message: "Invalid call request."},
	ErrMessageContentTooLong:    {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrFileSizeTooLarge:         {Code: ErrFileSizeTooLarge, Message: "File is too large (max %d MB).", Status: http.StatusRequestEntityTooLarge},
	ErrFileTypeInvalid:          {Code: ErrFileTypeInvalid, Message: "Unsupported file type.", Status: http.StatusBadRequest},
	ErrFileNotFound:             {Code: ErrFileNotFound, Message: "File not found.", Status: http.StatusNotFound},

	// 3xxx: Identity and Session Errors
	ErrUnauthorized:     {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrNotAnnounced:     {Code: ErrNotAnnounced, Message: "Announce yourself with add-user first."},
	ErrIdentityMismatch: {Code: ErrIdentityMismatch, Message: "User id does not match your session.", Status: http.StatusForbidden},

	// 4xxx: Feature Availability
	ErrPersistenceDisabled: {Code: ErrPersistenceDisabled, Message: "Message history is not available.", Status: http.StatusNotImplemented},
	ErrStorageDisabled:     {Code: ErrStorageDisabled, Message: "Media upload is not available.", Status: http.StatusNotImplemented},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
	ErrDatabase:          {Code: ErrDatabase, Message: "Could not load messages. Please try again.", Status: http.StatusInternalServerError},
}
