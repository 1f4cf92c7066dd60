package keying

import (
	"fmt"
	"strings"
	"sync"

	"github.com/allbin/go-sdrtx/internal/serialport"
	"go.uber.org/multierr"
)

// SerialPin resolves a modem control pin name to its line bit.
// Accepted names are DTR and RTS, case-insensitive, with an optional
// TIOCM_ prefix.
func SerialPin(name string) (int, error) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "TIOCM_") {
	case "DTR":
		return serialport.LineDTR, nil
	case "RTS":
		return serialport.LineRTS, nil
	default:
		return 0, fmt.Errorf("%w: serial pin %q (valid: DTR, RTS)", ErrUnknownPin, name)
	}
}

// SerialPinName is the inverse of SerialPin
func SerialPinName(pin int) string {
	switch pin {
	case serialport.LineDTR:
		return "DTR"
	case serialport.LineRTS:
		return "RTS"
	default:
		return fmt.Sprintf("pin(%#x)", pin)
	}
}

// modemPort is the part of serialport.Port a serial line drives
type modemPort interface {
	SetModemLines(bits int, state bool) error
	Close() error
}

// SerialLine keys the transmitter with a modem control pin of a serial port
type SerialLine struct {
	mu     sync.Mutex
	port   modemPort
	device string
	pin    int
	invert bool
	closed bool
}

// OpenSerial opens device and drives pin to the off level.
// pin is a value returned by SerialPin.
func OpenSerial(device string, pin int, invert bool) (*SerialLine, error) {
	if pin != serialport.LineDTR && pin != serialport.LineRTS {
		return nil, fmt.Errorf("%w: serial pin %#x", ErrUnknownPin, pin)
	}

	opt := serialport.WithInitialDTR(level(false, invert))
	if pin == serialport.LineRTS {
		opt = serialport.WithInitialRTS(level(false, invert))
	}

	port, err := serialport.Open(device, opt)
	if err != nil {
		return nil, fmt.Errorf("open serial keying port %s: %w", device, err)
	}
	return newSerialLine(port, device, pin, invert), nil
}

func newSerialLine(port modemPort, device string, pin int, invert bool) *SerialLine {
	return &SerialLine{
		port:   port,
		device: device,
		pin:    pin,
		invert: invert,
	}
}

// SetOn keys the transmitter
func (l *SerialLine) SetOn() error {
	return l.set(true)
}

// SetOff unkeys the transmitter
func (l *SerialLine) SetOff() error {
	return l.set(false)
}

func (l *SerialLine) set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLineClosed
	}
	if err := l.port.SetModemLines(l.pin, level(on, l.invert)); err != nil {
		return fmt.Errorf("set %s on %s: %w", SerialPinName(l.pin), l.device, err)
	}
	return nil
}

// Close drives the pin off and releases the port. The port is released
// even when the final off fails.
func (l *SerialLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	err := multierr.Combine(
		l.port.SetModemLines(l.pin, level(false, l.invert)),
		l.port.Close(),
	)
	if err != nil {
		return fmt.Errorf("close %s: %w", l.device, err)
	}
	return nil
}

// String describes the line, e.g. "/dev/ttyUSB0:RTS"
func (l *SerialLine) String() string {
	return l.device + ":" + SerialPinName(l.pin)
}
