package ws2812

import "errors"

var (
	ErrPageOutOfRange  = errors.New("page out of range")
	ErrIndexOutOfRange = errors.New("led index out of range")
	ErrFrameLength     = errors.New("frame length does not match pixel count")
	ErrTooManyPixels   = errors.New("pixel count out of range")
	ErrTransport       = errors.New("bus write failed")
	ErrBusBusy         = errors.New("previous bus write still in flight")
)
