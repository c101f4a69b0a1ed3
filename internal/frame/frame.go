// Package frame holds camera frames and the single-slot buffer that hands the
// newest one from the acquisition loop to the display loop.
package frame

import "time"

// Frame is a captured image. Data is JPEG-encoded and must not be modified
// after the frame has been published; readers share it by reference.
type Frame struct {
	Seq        uint64
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}
