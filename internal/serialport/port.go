// Package serialport drives the modem control lines (RTS/DTR) of a Linux
// serial device. It is the low-level half of the serial keying line.
package serialport

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Modem control line bits accepted by SetModemLines
const (
	LineDTR = unix.TIOCM_DTR
	LineRTS = unix.TIOCM_RTS
)

// Port is an open serial device used for modem line control
type Port struct {
	mu     sync.RWMutex
	fd     int
	closed bool
}

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 1200:
		return unix.B1200, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// openError maps errno values from open(2) to the package errors
func openError(device string, err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return ErrDeviceNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	case errors.Is(err, unix.EBUSY):
		return ErrDeviceInUse
	default:
		return fmt.Errorf("failed to open %s: %w", device, err)
	}
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (*Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, openError(device, err)
	}

	if config.Exclusive {
		if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to lock %s: %w", device, err)
		}
	}

	if err := configurePort(fd, config); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if config.InitialRTS != nil {
		if err := setModemLines(fd, LineRTS, *config.InitialRTS); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial RTS: %w", err)
		}
	}
	if config.InitialDTR != nil {
		if err := setModemLines(fd, LineDTR, *config.InitialDTR); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial DTR: %w", err)
		}
	}

	return &Port{fd: fd}, nil
}

// configurePort puts the port in raw mode. HUPCL is cleared so closing the
// port does not toggle DTR behind the caller's back.
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	baudRate, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}

	termios.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

func setModemLines(fd int, bits int, state bool) error {
	if bits == 0 || bits&^(LineDTR|LineRTS) != 0 {
		return ErrInvalidLine
	}
	if state {
		return unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, bits)
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, bits)
}

// Close closes the serial port
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	err := unix.Close(p.fd)
	p.closed = true
	return err
}

// SetModemLines asserts (state true) or deasserts the given modem line bits
func (p *Port) SetModemLines(bits int, state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	return setModemLines(p.fd, bits, state)
}

// GetModemSignals returns current state of all modem control signals
func (p *Port) GetModemSignals() (ModemSignals, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ModemSignals{}, ErrPortClosed
	}

	status, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
	if err != nil {
		return ModemSignals{}, err
	}

	return signalsFromStatus(status), nil
}

func signalsFromStatus(status int) ModemSignals {
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}
