package kmsg

import "errors"

var (
	// Transient condition, read again immediately
	ErrWouldBlock = errors.New("kernel message source would block")
	// Nothing arrived within the poll timeout
	ErrNoData = errors.New("no kernel messages available")
	// Source used before Open
	ErrNotOpen = errors.New("kernel message source is not open")
)
