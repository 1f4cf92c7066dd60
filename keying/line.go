// Package keying implements the physical lines that key a transmitter:
// a modem control pin of a serial port and a sysfs GPIO pin.
//
// A line is "on" when the transmitter is keyed. Inversion is applied by the
// line itself, so callers only ever think in on/off terms:
//
//	line, err := keying.OpenGPIO("17", false)
//	if err != nil {
//	    return err
//	}
//	defer line.Close()
//
//	if err := line.SetOn(); err != nil {
//	    return err
//	}
//	defer line.SetOff()
package keying

import "errors"

// Line is a keying line that can be switched on and off
type Line interface {
	SetOn() error
	SetOff() error
	Close() error
}

var (
	ErrUnknownPin = errors.New("unknown keying pin")
	ErrLineClosed = errors.New("keying line is closed")
)

// level maps a logical on/off state to the electrical level
func level(on, invert bool) bool {
	return on != invert
}
