package logrecord

import "errors"

var (
	ErrTooShort          = errors.New("record shorter than header")
	ErrTooLong           = errors.New("record exceeds maximum length")
	ErrTagTooLong        = errors.New("tag exceeds maximum length")
	ErrLengthMismatch    = errors.New("record length does not match header")
	ErrMissingTerminator = errors.New("missing string terminator")
)
