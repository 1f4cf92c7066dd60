package sdrtx

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/allbin/go-sdrtx/encoder"
	"github.com/allbin/go-sdrtx/keying"
)

// resources is everything an initialized controller owns
type resources struct {
	encoder encoder.Encoder
	serial  keying.Line
	gpio    keying.Line
	device  string
	txDelay time.Duration
}

func (r *resources) keyed() bool {
	return r.serial != nil || r.gpio != nil
}

// guard serializes every operation on the owned resources. A transmission
// holds it from arming until the lines are disarmed again.
type guard struct {
	mu  sync.Mutex
	res resources
}

func (g *guard) lock() *resources {
	g.mu.Lock()
	return &g.res
}

func (g *guard) unlock() {
	g.mu.Unlock()
}

// Controller coordinates the keying lines and the encoder of one
// transmitter
type Controller struct {
	guard guard

	log        *slog.Logger
	sleep      Sleeper
	openSerial SerialLineFunc
	openGPIO   GPIOLineFunc
	newEncoder EncoderFunc
}

// Status is a snapshot of the controller state
type Status struct {
	Initialized bool // encoder and at least one keying line owned
	Encoder     bool
	Serial      string // empty when no serial line is owned
	GPIO        string // empty when no GPIO line is owned
	Device      string
	TxDelay     time.Duration
	Correction  float64
}

// New returns an uninitialized controller
func New(opts ...Option) *Controller {
	c := &Controller{
		log:        slog.Default(),
		sleep:      sleep,
		openSerial: defaultSerialLine,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Shutdown releases every owned resource: the serial line, then the GPIO
// line, then the encoder when it is an io.Closer. A failing release is
// logged and does not stop the others. The returned error only reports what
// failed; the controller is uninitialized afterwards either way.
func (c *Controller) Shutdown() error {
	res := c.guard.lock()
	defer c.guard.unlock()

	return c.release(res)
}

func (c *Controller) release(res *resources) error {
	var errs error
	closeOne := func(name string, fn func() error) {
		if err := fn(); err != nil {
			c.log.Error("failed to release resource", "resource", name, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if res.serial != nil {
		closeOne("serial", res.serial.Close)
	}
	if res.gpio != nil {
		closeOne("gpio", res.gpio.Close)
	}
	if closer, ok := res.encoder.(io.Closer); ok {
		closeOne("encoder", closer.Close)
	}

	*res = resources{}
	return errs
}

// Initialize releases whatever is owned and builds the keying lines and
// encoder described by src. Either every configured resource is built or
// none is kept.
func (c *Controller) Initialize(src Source) error {
	res := c.guard.lock()
	defer c.guard.unlock()

	if err := c.release(res); err != nil {
		c.log.Warn("previous resources released with errors", "count", len(multierr.Errors(err)))
	}

	s, err := ReadSettings(src)
	if err != nil {
		return err
	}

	next, err := c.build(s)
	if err != nil {
		return err
	}
	*res = next

	c.log.Info("transmitter initialized",
		"serial", describe(next.serial),
		"gpio", describe(next.gpio),
		"device", next.device,
		"tx_delay", next.txDelay,
		"correction", s.Correction,
	)
	return nil
}

func (c *Controller) build(s Settings) (resources, error) {
	next := resources{
		device:  s.Device,
		txDelay: s.TxDelay,
	}

	fail := func(resource string, err error) (resources, error) {
		if rerr := c.release(&next); rerr != nil {
			c.log.Warn("rollback released with errors", "count", len(multierr.Errors(rerr)))
		}
		return resources{}, &ResourceError{Resource: resource, Err: err}
	}

	if s.SerialUse {
		pin, err := keying.SerialPin(s.SerialPin)
		if err != nil {
			return fail("serial", err)
		}
		line, err := c.openSerial(s.SerialPort, pin, s.Invert)
		if err != nil {
			return fail("serial", err)
		}
		next.serial = line
	}

	if s.GPIOUse {
		openGPIO := c.openGPIO
		if openGPIO == nil {
			openGPIO = defaultGPIOLine(s)
		}
		line, err := openGPIO(s.GPIOPin, s.Invert)
		if err != nil {
			return fail("gpio", err)
		}
		next.gpio = line
	}

	newEncoder := c.newEncoder
	if newEncoder == nil {
		newEncoder = defaultEncoder(s)
	}
	enc, err := newEncoder(s.Device)
	if err != nil {
		return fail("encoder", err)
	}
	enc.SetCorrection(s.Correction)
	next.encoder = enc

	return next, nil
}

// Encode renders codewords with the owned encoder
func (c *Controller) Encode(codewords []int) ([]byte, error) {
	res := c.guard.lock()
	defer c.guard.unlock()

	if res.encoder == nil {
		return nil, fmt.Errorf("encode: %w", ErrUninitialized)
	}
	return res.encoder.Encode(codewords)
}

// Transmit keys the transmitter, waits the guard delay, plays data and
// unkeys again. The lines are disarmed on every exit path once arming has
// started.
func (c *Controller) Transmit(data []byte) error {
	res := c.guard.lock()
	defer c.guard.unlock()

	if !res.keyed() {
		return fmt.Errorf("transmit: %w", ErrUninitialized)
	}
	return c.transmit(res, data)
}

// Send encodes codewords and transmits the result without releasing the
// lock in between, so a concurrent Initialize cannot swap the encoder
// under the rendered data. It returns the number of bytes played.
func (c *Controller) Send(codewords []int) (int, error) {
	res := c.guard.lock()
	defer c.guard.unlock()

	if !res.keyed() || res.encoder == nil {
		return 0, fmt.Errorf("send: %w", ErrUninitialized)
	}
	data, err := res.encoder.Encode(codewords)
	if err != nil {
		return 0, err
	}
	return len(data), c.transmit(res, data)
}

func (c *Controller) transmit(res *resources, data []byte) error {
	defer c.disarm(res)

	if err := c.arm(res); err != nil {
		return err
	}

	if res.txDelay > 0 {
		if err := c.sleep(res.txDelay); err != nil {
			c.log.Warn("guard delay interrupted", "delay", res.txDelay, "error", err)
		}
	}

	if res.encoder == nil {
		return fmt.Errorf("transmit: %w", ErrUninitialized)
	}
	if err := res.encoder.Play(data); err != nil {
		c.log.Error("failed to play", "device", res.device, "bytes", len(data), "error", err)
		return &PlayError{Err: err}
	}

	c.log.Debug("transmission complete", "device", res.device, "bytes", len(data))
	return nil
}

func (c *Controller) arm(res *resources) error {
	if res.serial != nil {
		if err := res.serial.SetOn(); err != nil {
			c.log.Error("failed to enable line", "line", "serial", "error", err)
			return &ArmError{Line: "serial", Err: err}
		}
		c.log.Debug("line enabled", "line", describe(res.serial))
	}
	if res.gpio != nil {
		if err := res.gpio.SetOn(); err != nil {
			c.log.Error("failed to enable line", "line", "gpio", "error", err)
			return &ArmError{Line: "gpio", Err: err}
		}
		c.log.Debug("line enabled", "line", describe(res.gpio))
	}
	return nil
}

func (c *Controller) disarm(res *resources) {
	if res.serial != nil {
		if err := res.serial.SetOff(); err != nil {
			c.log.Error("failed to disable line", "line", "serial", "error", err)
		} else {
			c.log.Debug("line disabled", "line", describe(res.serial))
		}
	}
	if res.gpio != nil {
		if err := res.gpio.SetOff(); err != nil {
			c.log.Error("failed to disable line", "line", "gpio", "error", err)
		} else {
			c.log.Debug("line disabled", "line", describe(res.gpio))
		}
	}
}

// SetCorrection sets the encoder clock correction. Ignored while
// uninitialized.
func (c *Controller) SetCorrection(ppm float64) {
	res := c.guard.lock()
	defer c.guard.unlock()

	if res.encoder != nil {
		res.encoder.SetCorrection(ppm)
	}
}

// Correction returns the encoder clock correction, or 0 while
// uninitialized
func (c *Controller) Correction() float64 {
	res := c.guard.lock()
	defer c.guard.unlock()

	if res.encoder == nil {
		return 0
	}
	return res.encoder.Correction()
}

// Status returns a snapshot of the owned resources
func (c *Controller) Status() Status {
	res := c.guard.lock()
	defer c.guard.unlock()

	st := Status{
		Initialized: res.encoder != nil && res.keyed(),
		Encoder:     res.encoder != nil,
		Serial:      describe(res.serial),
		GPIO:        describe(res.gpio),
		Device:      res.device,
		TxDelay:     res.txDelay,
	}
	if res.encoder != nil {
		st.Correction = res.encoder.Correction()
	}
	return st
}

func describe(line keying.Line) string {
	switch l := line.(type) {
	case nil:
		return ""
	case fmt.Stringer:
		return l.String()
	default:
		return "owned"
	}
}
