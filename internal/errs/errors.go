package errs

import "errors"

var (
	// ErrNotFound indicates that an event, participant, certificate or user is absent.
	ErrNotFound = errors.New("not found")
	// ErrIneligible indicates that the participant does not meet the event requirements.
	ErrIneligible = errors.New("participant is not eligible for a certificate")
	// ErrDuplicateSubmission indicates a second evaluation (or quiz, when disabled) submission.
	ErrDuplicateSubmission = errors.New("already submitted")
	// ErrAlreadyExists indicates a registration with a taken username or email.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidQR indicates a scan payload that is neither a user nor an event code.
	ErrInvalidQR = errors.New("invalid qr code")
	// ErrInvalidInput indicates a request that fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized indicates a missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller without the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrRender indicates the certificate document could not be produced or stored.
	ErrRender = errors.New("certificate rendering failed")
	// ErrDelivery indicates that no email provider accepted the message.
	ErrDelivery = errors.New("email delivery failed")
)
