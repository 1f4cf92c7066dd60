package sdrtx

import (
	"log/slog"
	"time"

	"github.com/allbin/go-sdrtx/encoder"
	"github.com/allbin/go-sdrtx/keying"
)

// Sleeper waits out the guard delay between arming and playback
type Sleeper func(time.Duration) error

// SerialLineFunc builds the serial keying line for a port and modem pin
type SerialLineFunc func(port string, pin int, invert bool) (keying.Line, error)

// GPIOLineFunc builds the GPIO keying line for a pin name
type GPIOLineFunc func(pin string, invert bool) (keying.Line, error)

// EncoderFunc builds the encoder for a radio device
type EncoderFunc func(device string) (encoder.Encoder, error)

// Option is a functional option for configuring a Controller
type Option func(*Controller)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.log = logger
		}
	}
}

// WithSleeper replaces time.Sleep for the guard delay. A nil sleeper is
// ignored.
func WithSleeper(sleep Sleeper) Option {
	return func(c *Controller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithSerialLineFunc replaces keying.OpenSerial
func WithSerialLineFunc(fn SerialLineFunc) Option {
	return func(c *Controller) {
		c.openSerial = fn
	}
}

// WithGPIOLineFunc replaces keying.OpenGPIO
func WithGPIOLineFunc(fn GPIOLineFunc) Option {
	return func(c *Controller) {
		c.openGPIO = fn
	}
}

// WithEncoderFunc replaces encoder.New
func WithEncoderFunc(fn EncoderFunc) Option {
	return func(c *Controller) {
		c.newEncoder = fn
	}
}

func sleep(d time.Duration) error {
	time.Sleep(d)
	return nil
}

func defaultSerialLine(port string, pin int, invert bool) (keying.Line, error) {
	line, err := keying.OpenSerial(port, pin, invert)
	if err != nil {
		return nil, err
	}
	return line, nil
}

func defaultGPIOLine(s Settings) GPIOLineFunc {
	return func(pin string, invert bool) (keying.Line, error) {
		line, err := keying.OpenGPIO(pin, invert, keying.WithSysfsRoot(s.GPIORoot))
		if err != nil {
			return nil, err
		}
		return line, nil
	}
}

func defaultEncoder(s Settings) EncoderFunc {
	return func(device string) (encoder.Encoder, error) {
		enc, err := encoder.New(device, encoder.WithPlayer(s.Player...))
		if err != nil {
			return nil, err
		}
		return enc, nil
	}
}
