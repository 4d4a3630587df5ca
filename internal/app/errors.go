package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// This message is intended to be shown to end users and should not enable account enumeration.
	ErrInvalidCredentials = errors.New("Incorrect email address or password")

	ErrSignupFieldsRequired = errors.New("username, email and password required")
	ErrEmailAlreadyExists   = errors.New("email already exists")

	// ErrNoArtifacts rejects a batch with zero files before any work starts.
	ErrNoArtifacts = errors.New("no files submitted")

	// ErrUnsupportedFormat marks an upload whose media type is neither an
	// image nor a PDF.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyContent marks an upload that extracted to nothing but whitespace.
	ErrEmptyContent = errors.New("no text could be extracted")

	// ErrNoArchive marks a history item whose original upload was never
	// archived, or a deployment without object storage.
	ErrNoArchive = errors.New("no archived upload for this item")
)
