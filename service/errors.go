package service

import "errors"

// Failure kinds surfaced by the image asset manager. Call sites wrap these
// with fmt.Errorf("%w: ...") once, at the boundary where the kind is first
// known, so a caller can classify any returned error with errors.Is.
var (
	// ErrInvalidArgument marks malformed or missing input. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a missing record or storage object whose presence
	// was required.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName marks a unique-name collision outside the
	// merge-on-create path (currently only rename).
	ErrDuplicateName = errors.New("duplicate name")

	// ErrDecode marks source bytes that are not a valid image.
	ErrDecode = errors.New("image decode failed")

	// ErrStorage marks a transport, auth or service failure talking to
	// object storage. Idempotent operations are safe to retry.
	ErrStorage = errors.New("storage failure")

	// ErrDatabase marks a failure from the record store. Not retried
	// automatically.
	ErrDatabase = errors.New("database failure")
)
