/*
Package errs provides custom error types and application-level error code constants.

These error codes identify protocol, signaling and system errors both inside the relay
and in the frames and HTTP responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body or socket frame is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body exceeded the allowed size.
	ErrRequestEntityTooLarge = 1005

	// ErrFormParseFailed indicates a multipart form that could not be parsed.
	ErrFormParseFailed = 1006

	// ErrRateLimitExceeded indicates that the request or event rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Signaling Errors
const (
	// ErrUnknownEvent indicates that a socket frame named an event the relay does not handle.
	ErrUnknownEvent = 2001

	// ErrEnvelopeMissingRecipient indicates a signaling envelope without a usable "to".
	ErrEnvelopeMissingRecipient = 2002

	// ErrEnvelopeMissingSender indicates a signaling envelope without a usable "from".
	ErrEnvelopeMissingSender = 2003

	// ErrCallTypeInvalid indicates an outgoing call with an unknown call type or no room id.
	ErrCallTypeInvalid = 2101

	// ErrMessageContentTooLong indicates that a chat message exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrFileSizeTooLarge indicates that a media upload exceeded the size limit.
	ErrFileSizeTooLarge = 2202

	// ErrFileTypeInvalid indicates a media upload with a disallowed name or MIME type.
	ErrFileTypeInvalid = 2203

	// ErrFileNotFound indicates a media key that does not exist in storage.
	ErrFileNotFound = 2204
)

// 3xxx: Identity and Session Errors
const (
	// ErrUnauthorized indicates that the request carries no valid identity.
	ErrUnauthorized = 3001

	// ErrNotAnnounced indicates an event that requires the connection to have sent add-user first.
	ErrNotAnnounced = 3002

	// ErrIdentityMismatch indicates an event naming a user other than the one bound to the connection.
	ErrIdentityMismatch = 3003
)

// 4xxx: Feature Availability
const (
	// ErrPersistenceDisabled indicates that the relay runs without a message store.
	ErrPersistenceDisabled = 4001

	// ErrStorageDisabled indicates that the relay runs without media storage.
	ErrStorageDisabled = 4002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that the object storage refused a request.
	ErrFileStorageFailed = 5001

	// ErrDatabase indicates that the message store failed a request.
	ErrDatabase = 5002
)
