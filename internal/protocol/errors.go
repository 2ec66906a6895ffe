package protocol

import "errors"

var (
	// ErrBadFrame reports a header that fails the validity check or a
	// length that cannot fit the negotiated buffer.
	ErrBadFrame = errors.New("protocol: bad frame")

	// ErrShortBuffer reports a read past the end of a frame body.
	ErrShortBuffer = errors.New("protocol: short buffer")

	// ErrStringTooLong reports a wire string exceeding its field limit.
	ErrStringTooLong = errors.New("protocol: string too long")
)
