package wireerr

import "net/http"

// Upload codes, returned from POST/PUT on a channel (spec.md §4.3).
var (
	UploadIllegalVersion = Register("upload", ErrorDescriptor{
		Value:          "ILLEGAL_VERSION",
		Message:        "client version is not supported by this server",
		HTTPStatusCode: http.StatusUpgradeRequired, // 426
	})
	UploadWrongVersion = Register("upload", ErrorDescriptor{
		Value:          "WRONG_VERSION",
		Message:        "request version does not match the stream that created this channel",
		HTTPStatusCode: http.StatusPreconditionFailed, // 412
	})
	UploadConflict = Register("upload", ErrorDescriptor{
		Value:          "CONFLICT",
		Message:        "another writer already owns this channel",
		HTTPStatusCode: http.StatusConflict, // 409
	})
	UploadStreamID = Register("upload", ErrorDescriptor{
		Value:          "STREAM_ID",
		Message:        "stream_id missing or malformed",
		HTTPStatusCode: http.StatusUnprocessableEntity, // 422
	})
	UploadTooBig = Register("upload", ErrorDescriptor{
		Value:          "TOO_BIG",
		Message:        "block exceeds the server's maximum block size",
		HTTPStatusCode: http.StatusRequestEntityTooLarge, // 413
	})
	UploadForbidden = Register("upload", ErrorDescriptor{
		Value:          "FORBIDDEN",
		Message:        "write rejected",
		HTTPStatusCode: http.StatusForbidden, // 403
	})
	UploadLocked = Register("upload", ErrorDescriptor{
		Value:          "LOCKED",
		Message:        "channel is locked by a concurrent read",
		HTTPStatusCode: http.StatusLocked, // 423
	})
	UploadWait = Register("upload", ErrorDescriptor{
		Value:          "WAIT",
		Message:        "pipe is full; back off and retry",
		HTTPStatusCode: http.StatusTooEarly, // 425
	})
)

// Query codes, returned from GET /q/{C} (spec.md §4.3).
var (
	QueryIllegalVersion = Register("query", ErrorDescriptor{
		Value:          "ILLEGAL_VERSION",
		Message:        "client version is not supported by this server",
		HTTPStatusCode: http.StatusUpgradeRequired, // 426
	})
	QueryNoData = Register("query", ErrorDescriptor{
		Value:          "NO_DATA",
		Message:        "channel has no data",
		HTTPStatusCode: http.StatusNoContent, // 204
	})
)

// Download codes, returned from GET /c/{C} (spec.md §4.3).
var (
	DownloadIllegalVersion = Register("download", ErrorDescriptor{
		Value:          "ILLEGAL_VERSION",
		Message:        "client version is not supported by this server",
		HTTPStatusCode: http.StatusUpgradeRequired, // 426
	})
	DownloadWrongVersion = Register("download", ErrorDescriptor{
		Value:          "WRONG_VERSION",
		Message:        "request version does not match the stream that created this channel",
		HTTPStatusCode: http.StatusPreconditionFailed, // 412
	})
	DownloadConflict = Register("download", ErrorDescriptor{
		Value:          "CONFLICT",
		Message:        "channel already has a different reader",
		HTTPStatusCode: http.StatusConflict, // 409
	})
	DownloadLocked = Register("download", ErrorDescriptor{
		Value:          "LOCKED",
		Message:        "channel is locked by a concurrent read",
		HTTPStatusCode: http.StatusLocked, // 423
	})
	DownloadNoData = Register("download", ErrorDescriptor{
		Value:          "NO_DATA",
		Message:        "no data yet",
		HTTPStatusCode: http.StatusNoContent, // 204
	})
)

// Admin codes, returned from /admin/* (spec.md §4.5).
var (
	AdminAccessDenied = Register("admin", ErrorDescriptor{
		Value:          "ACCESS_DENIED",
		Message:        "admin request denied",
		HTTPStatusCode: http.StatusUnauthorized, // 401
	})
	AdminIllegalVersion = Register("admin", ErrorDescriptor{
		Value:          "ILLEGAL_VERSION",
		Message:        "admin client version is not supported by this server",
		HTTPStatusCode: http.StatusUpgradeRequired, // 426
	})
)
