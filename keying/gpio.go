package keying

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultSysfsRoot is the kernel's sysfs GPIO class directory
const DefaultSysfsRoot = "/sys/class/gpio"

// GPIOOption configures a GPIO line
type GPIOOption func(*gpioConfig)

type gpioConfig struct {
	root          string
	exportTimeout time.Duration
}

// WithSysfsRoot sets the sysfs GPIO class directory
func WithSysfsRoot(root string) GPIOOption {
	return func(c *gpioConfig) {
		if root != "" {
			c.root = root
		}
	}
}

// WithExportTimeout bounds the wait for udev to publish an exported pin
func WithExportTimeout(d time.Duration) GPIOOption {
	return func(c *gpioConfig) {
		c.exportTimeout = d
	}
}

// GPIOPin parses a GPIO pin identifier such as "17", "GPIO17" or "BCM17"
func GPIOPin(name string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	for _, prefix := range []string{"GPIO", "BCM"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimLeft(s, "_")

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: gpio pin %q", ErrUnknownPin, name)
	}
	return n, nil
}

// GPIOLine keys the transmitter with a sysfs GPIO output
type GPIOLine struct {
	mu       sync.Mutex
	root     string
	pin      int
	invert   bool
	exported bool // we exported the pin and unexport it on Close
	closed   bool
}

// OpenGPIO exports pin if needed, configures it as an output and drives it
// to the off level.
func OpenGPIO(pin string, invert bool, opts ...GPIOOption) (*GPIOLine, error) {
	config := gpioConfig{
		root:          DefaultSysfsRoot,
		exportTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(&config)
	}

	n, err := GPIOPin(pin)
	if err != nil {
		return nil, err
	}

	l := &GPIOLine{
		root:   config.root,
		pin:    n,
		invert: invert,
	}

	if _, err := os.Stat(l.path()); errors.Is(err, os.ErrNotExist) {
		if err := writeSysfs(filepath.Join(l.root, "export"), strconv.Itoa(n)); err != nil {
			return nil, fmt.Errorf("export gpio%d: %w", n, err)
		}
		l.exported = true
		if err := waitWritable(filepath.Join(l.path(), "direction"), config.exportTimeout); err != nil {
			l.unexport()
			return nil, fmt.Errorf("export gpio%d: %w", n, err)
		}
	}

	// "low"/"high" sets direction and initial value in one write.
	direction := "low"
	if level(false, invert) {
		direction = "high"
	}
	if err := writeSysfs(filepath.Join(l.path(), "direction"), direction); err != nil {
		l.unexport()
		return nil, fmt.Errorf("configure gpio%d: %w", n, err)
	}

	return l, nil
}

func (l *GPIOLine) path() string {
	return filepath.Join(l.root, "gpio"+strconv.Itoa(l.pin))
}

// Pin returns the GPIO number
func (l *GPIOLine) Pin() int {
	return l.pin
}

// SetOn keys the transmitter
func (l *GPIOLine) SetOn() error {
	return l.set(true)
}

// SetOff unkeys the transmitter
func (l *GPIOLine) SetOff() error {
	return l.set(false)
}

func (l *GPIOLine) set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLineClosed
	}
	return l.write(on)
}

func (l *GPIOLine) write(on bool) error {
	value := "0"
	if level(on, l.invert) {
		value = "1"
	}
	if err := writeSysfs(filepath.Join(l.path(), "value"), value); err != nil {
		return fmt.Errorf("set gpio%d: %w", l.pin, err)
	}
	return nil
}

// Close drives the pin off and unexports it if OpenGPIO exported it
func (l *GPIOLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if err := l.write(false); err != nil {
		l.unexport()
		return err
	}
	return l.unexport()
}

func (l *GPIOLine) unexport() error {
	if !l.exported {
		return nil
	}
	l.exported = false
	if err := writeSysfs(filepath.Join(l.root, "unexport"), strconv.Itoa(l.pin)); err != nil {
		return fmt.Errorf("unexport gpio%d: %w", l.pin, err)
	}
	return nil
}

// String describes the line, e.g. "gpio17"
func (l *GPIOLine) String() string {
	return "gpio" + strconv.Itoa(l.pin)
}

func writeSysfs(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// waitWritable polls until path can be opened for writing. udev changes
// the group of freshly exported nodes shortly after they appear.
func waitWritable(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err == nil {
			return f.Close()
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
}
