package sdrtx

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-sdrtx/encoder"
	"github.com/allbin/go-sdrtx/keying"
)

// recorder collects the calls made on fake resources in order
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) trace() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeLine struct {
	name     string
	rec      *recorder
	onErr    error
	offErr   error
	closeErr error
}

func (l *fakeLine) SetOn() error {
	l.rec.add("%s.on", l.name)
	return l.onErr
}

func (l *fakeLine) SetOff() error {
	l.rec.add("%s.off", l.name)
	return l.offErr
}

func (l *fakeLine) Close() error {
	l.rec.add("%s.close", l.name)
	return l.closeErr
}

func (l *fakeLine) String() string { return l.name }

type fakeEncoder struct {
	rec        *recorder
	device     string
	correction float64
	playErr    error
	block      chan struct{}
	closed     bool
}

func (e *fakeEncoder) SetCorrection(ppm float64) { e.correction = ppm }
func (e *fakeEncoder) Correction() float64       { return e.correction }

func (e *fakeEncoder) Encode(codewords []int) ([]byte, error) {
	return []byte(fmt.Sprint(codewords)), nil
}

func (e *fakeEncoder) Play(data []byte) error {
	e.rec.add("play %s", data)
	if e.block != nil {
		<-e.block
	}
	return e.playErr
}

func (e *fakeEncoder) Close() error {
	e.rec.add("encoder.close")
	e.closed = true
	return nil
}

var _ io.Closer = (*fakeEncoder)(nil)

// harness wires a controller to fake resources
type harness struct {
	rec     *recorder
	serials []*fakeLine
	gpios   []*fakeLine
	encs    []*fakeEncoder

	serialErr error
	gpioErr   error
	encErr    error
	playErr   error
	onErr     map[string]error
	offErr    map[string]error
	closeErr  map[string]error
}

func newHarness() *harness {
	return &harness{
		rec:      &recorder{},
		onErr:    map[string]error{},
		offErr:   map[string]error{},
		closeErr: map[string]error{},
	}
}

func (h *harness) line(name string) *fakeLine {
	return &fakeLine{
		name:     name,
		rec:      h.rec,
		onErr:    h.onErr[name],
		offErr:   h.offErr[name],
		closeErr: h.closeErr[name],
	}
}

func (h *harness) controller(opts ...Option) *Controller {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSleeper(func(d time.Duration) error {
			h.rec.add("sleep %s", d)
			return nil
		}),
		WithSerialLineFunc(func(port string, pin int, invert bool) (keying.Line, error) {
			if h.serialErr != nil {
				return nil, h.serialErr
			}
			l := h.line("serial")
			h.rec.add("serial.open %s %s invert=%t", port, keying.SerialPinName(pin), invert)
			h.serials = append(h.serials, l)
			return l, nil
		}),
		WithGPIOLineFunc(func(pin string, invert bool) (keying.Line, error) {
			if h.gpioErr != nil {
				return nil, h.gpioErr
			}
			l := h.line("gpio")
			h.rec.add("gpio.open %s invert=%t", pin, invert)
			h.gpios = append(h.gpios, l)
			return l, nil
		}),
		WithEncoderFunc(func(device string) (encoder.Encoder, error) {
			if h.encErr != nil {
				return nil, h.encErr
			}
			e := &fakeEncoder{rec: h.rec, device: device, playErr: h.playErr}
			h.encs = append(h.encs, e)
			return e, nil
		}),
	}
	return New(append(base, opts...)...)
}

func config(values map[string]any) *viper.Viper {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func bothLines() *viper.Viper {
	return config(map[string]any{
		KeySerialUse:  true,
		KeySerialPin:  "RTS",
		KeySerialPort: "/dev/ttyUSB0",
		KeyGPIOUse:    true,
		KeyGPIOPin:    "17",
		KeySDRDevice:  "rtl0",
	})
}

func TestScenarioGPIOOnly(t *testing.T) {
	h := newHarness()
	tx := h.controller()

	require.NoError(t, tx.Initialize(config(map[string]any{
		KeySerialUse: false,
		KeyGPIOUse:   true,
		KeyGPIOPin:   "17",
		KeySDRDevice: "rtl0",
		KeyTxDelay:   100,
	})))

	data, err := tx.Encode([]int{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, tx.Transmit(data))

	assert.Equal(t, []string{
		"gpio.open 17 invert=false",
		"gpio.on",
		"sleep 100ms",
		"play [1 2 3]",
		"gpio.off",
	}, h.rec.trace())
	assert.Empty(t, h.serials)
}

func TestShutdownIdempotent(t *testing.T) {
	h := newHarness()
	tx := h.controller()

	assert.NoError(t, tx.Shutdown(), "shutdown of a fresh controller")

	require.NoError(t, tx.Initialize(bothLines()))
	assert.NoError(t, tx.Shutdown())
	assert.NoError(t, tx.Shutdown())

	assert.Equal(t, Status{}, tx.Status())
	assert.Equal(t, []string{
		"serial.open /dev/ttyUSB0 RTS invert=false",
		"gpio.open 17 invert=false",
		"serial.close",
		"gpio.close",
		"encoder.close",
	}, h.rec.trace())
}

func TestShutdownContinuesAfterFailure(t *testing.T) {
	h := newHarness()
	h.closeErr["serial"] = errors.New("port gone")
	tx := h.controller()

	require.NoError(t, tx.Initialize(bothLines()))

	err := tx.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port gone")
	assert.Contains(t, h.rec.trace(), "gpio.close")
	assert.True(t, h.encs[0].closed)
	assert.False(t, tx.Status().Initialized)

	assert.NoError(t, tx.Shutdown())
}

func TestReinitializeReplacesResources(t *testing.T) {
	h := newHarness()
	tx := h.controller()

	require.NoError(t, tx.Initialize(bothLines()))
	require.NoError(t, tx.Initialize(config(map[string]any{
		KeyGPIOUse:       false,
		KeySerialUse:     true,
		KeySerialPin:     "DTR",
		KeySerialPort:    "/dev/ttyS1",
		KeySDRDevice:     "rtl1",
		KeySDRCorrection: 3.5,
	})))

	st := tx.Status()
	assert.True(t, st.Initialized)
	assert.Equal(t, "serial", st.Serial)
	assert.Empty(t, st.GPIO)
	assert.Equal(t, "rtl1", st.Device)
	assert.Equal(t, 3.5, st.Correction)

	// The first generation was released before the second was built.
	assert.Equal(t, []string{
		"serial.open /dev/ttyUSB0 RTS invert=false",
		"gpio.open 17 invert=false",
		"serial.close",
		"gpio.close",
		"encoder.close",
		"serial.open /dev/ttyS1 DTR invert=false",
	}, h.rec.trace())

	h.rec.calls = nil
	require.NoError(t, tx.Transmit([]byte("x")))
	assert.Equal(t, []string{"serial.on", "play x", "serial.off"}, h.rec.trace())
}

func TestTransmitRequiresKeyingLine(t *testing.T) {
	t.Run("uninitialized", func(t *testing.T) {
		h := newHarness()
		tx := h.controller()

		err := tx.Transmit([]byte("x"))
		assert.ErrorIs(t, err, ErrUninitialized)
		assert.Empty(t, h.rec.trace())
	})

	t.Run("no lines configured", func(t *testing.T) {
		h := newHarness()
		tx := h.controller()

		require.NoError(t, tx.Initialize(config(map[string]any{
			KeyGPIOUse:   false,
			KeySDRDevice: "rtl0",
		})))
		st := tx.Status()
		assert.False(t, st.Initialized, "an encoder alone cannot transmit")
		assert.True(t, st.Encoder)

		err := tx.Transmit([]byte("x"))
		assert.ErrorIs(t, err, ErrUninitialized)
		assert.Empty(t, h.rec.trace())
	})
}

func TestTransmitDisarmsWhenPlayFails(t *testing.T) {
	h := newHarness()
	h.playErr = errors.New("underrun")
	tx := h.controller()

	require.NoError(t, tx.Initialize(bothLines()))
	h.rec.calls = nil

	err := tx.Transmit([]byte("x"))

	var playErr *PlayError
	require.ErrorAs(t, err, &playErr)
	assert.ErrorIs(t, err, h.playErr)
	assert.Equal(t, []string{
		"serial.on",
		"gpio.on",
		"play x",
		"serial.off",
		"gpio.off",
	}, h.rec.trace())
}

func TestTransmitArmFailure(t *testing.T) {
	tests := []struct {
		name    string
		failing string
		want    []string
	}{
		{
			name:    "serial",
			failing: "serial",
			want:    []string{"serial.on", "serial.off", "gpio.off"},
		},
		{
			name:    "gpio",
			failing: "gpio",
			want:    []string{"serial.on", "gpio.on", "serial.off", "gpio.off"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.onErr[tt.failing] = errors.New("ioctl failed")
			tx := h.controller()

			require.NoError(t, tx.Initialize(bothLines()))
			h.rec.calls = nil

			err := tx.Transmit([]byte("x"))

			var armErr *ArmError
			require.ErrorAs(t, err, &armErr)
			assert.Equal(t, tt.failing, armErr.Line)
			assert.Equal(t, tt.want, h.rec.trace(), "play must not run")
		})
	}
}

func TestTransmitIgnoresDisarmFailure(t *testing.T) {
	h := newHarness()
	h.offErr["serial"] = errors.New("ioctl failed")
	tx := h.controller()

	require.NoError(t, tx.Initialize(bothLines()))
	h.rec.calls = nil

	require.NoError(t, tx.Transmit([]byte("x")))
	assert.Equal(t, []string{"serial.on", "gpio.on", "play x", "serial.off", "gpio.off"}, h.rec.trace())
}

func TestTransmitGuardDelay(t *testing.T) {
	t.Run("real sleep", func(t *testing.T) {
		h := newHarness()
		var armed, played time.Time
		tx := h.controller(WithSleeper(sleep), WithGPIOLineFunc(func(string, bool) (keying.Line, error) {
			return &timedLine{on: &armed}, nil
		}), WithEncoderFunc(func(string) (encoder.Encoder, error) {
			return &timedEncoder{played: &played}, nil
		}))

		require.NoError(t, tx.Initialize(config(map[string]any{KeyGPIOPin: "4", KeyTxDelay: 50})))
		require.NoError(t, tx.Transmit(nil))
		assert.GreaterOrEqual(t, played.Sub(armed), 50*time.Millisecond)
	})

	t.Run("zero delay skips the sleeper", func(t *testing.T) {
		h := newHarness()
		tx := h.controller()

		require.NoError(t, tx.Initialize(config(map[string]any{KeyGPIOPin: "4"})))
		h.rec.calls = nil

		require.NoError(t, tx.Transmit([]byte("x")))
		assert.Equal(t, []string{"gpio.on", "play x", "gpio.off"}, h.rec.trace())
	})

	t.Run("sleeper error does not abort", func(t *testing.T) {
		h := newHarness()
		tx := h.controller(WithSleeper(func(time.Duration) error {
			return errors.New("interrupted")
		}))

		require.NoError(t, tx.Initialize(config(map[string]any{KeyGPIOPin: "4", KeyTxDelay: 10})))
		h.rec.calls = nil

		require.NoError(t, tx.Transmit([]byte("x")))
		assert.Equal(t, []string{"gpio.on", "play x", "gpio.off"}, h.rec.trace())
	})
}

type timedLine struct{ on *time.Time }

func (l *timedLine) SetOn() error  { *l.on = time.Now(); return nil }
func (l *timedLine) SetOff() error { return nil }
func (l *timedLine) Close() error  { return nil }

type timedEncoder struct {
	played *time.Time
}

func (e *timedEncoder) SetCorrection(float64)        {}
func (e *timedEncoder) Correction() float64          { return 0 }
func (e *timedEncoder) Encode([]int) ([]byte, error) { return nil, nil }
func (e *timedEncoder) Play([]byte) error            { *e.played = time.Now(); return nil }

func TestCorrectionWithoutEncoder(t *testing.T) {
	h := newHarness()
	tx := h.controller()

	tx.SetCorrection(12.5)
	assert.Equal(t, 0.0, tx.Correction())

	require.NoError(t, tx.Initialize(config(map[string]any{KeyGPIOPin: "4", KeySDRCorrection: -2.0})))
	assert.Equal(t, -2.0, tx.Correction())
	tx.SetCorrection(12.5)
	assert.Equal(t, 12.5, tx.Correction())
	assert.Equal(t, 12.5, h.encs[0].correction)

	require.NoError(t, tx.Shutdown())
	assert.Equal(t, 0.0, tx.Correction())
}

func TestEncodeUninitialized(t *testing.T) {
	tx := newHarness().controller()

	_, err := tx.Encode([]int{1})
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestInitializeRollsBack(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *harness)
		cfg      *viper.Viper
		resource string
		released []string
	}{
		{
			name:     "gpio fails after serial",
			setup:    func(h *harness) { h.gpioErr = keying.ErrUnknownPin },
			cfg:      bothLines(),
			resource: "gpio",
			released: []string{"serial.close"},
		},
		{
			name:     "encoder fails after both lines",
			setup:    func(h *harness) { h.encErr = encoder.ErrNoDevice },
			cfg:      bothLines(),
			resource: "encoder",
			released: []string{"serial.close", "gpio.close"},
		},
		{
			name:     "unknown serial pin",
			setup:    func(h *harness) {},
			cfg:      config(map[string]any{KeySerialUse: true, KeySerialPin: "CTS"}),
			resource: "serial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)
			tx := h.controller()

			err := tx.Initialize(tt.cfg)

			var resErr *ResourceError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, tt.resource, resErr.Resource)
			assert.False(t, tx.Status().Initialized)
			assert.Equal(t, 0.0, tx.Correction())

			for _, want := range tt.released {
				assert.Contains(t, h.rec.trace(), want)
			}
			assert.ErrorIs(t, tx.Transmit([]byte("x")), ErrUninitialized)
		})
	}
}

func TestInitializeRejectsNegativeDelay(t *testing.T) {
	h := newHarness()
	tx := h.controller()

	require.NoError(t, tx.Initialize(bothLines()))

	err := tx.Initialize(config(map[string]any{KeyTxDelay: -5}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.False(t, tx.Status().Initialized, "previous resources are released")
}

func TestInitializeDefaults(t *testing.T) {
	h := newHarness()
	tx := h.controller()

	// gpio.use defaults to true, serial.use to false.
	require.NoError(t, tx.Initialize(viper.New()))

	st := tx.Status()
	assert.True(t, st.Initialized)
	assert.Empty(t, st.Serial)
	assert.Equal(t, "gpio", st.GPIO)
	assert.Zero(t, st.TxDelay)
	assert.Len(t, h.gpios, 1)
	assert.Empty(t, h.serials)
}

func TestInitializeInvert(t *testing.T) {
	h := newHarness()
	tx := h.controller()

	cfg := bothLines()
	cfg.Set(KeyInvert, true)
	require.NoError(t, tx.Initialize(cfg))

	assert.Equal(t, []string{
		"serial.open /dev/ttyUSB0 RTS invert=true",
		"gpio.open 17 invert=true",
	}, h.rec.trace())
}

func TestShutdownWaitsForTransmission(t *testing.T) {
	h := newHarness()
	tx := h.controller()

	require.NoError(t, tx.Initialize(config(map[string]any{KeyGPIOPin: "4"})))
	release := make(chan struct{})
	h.encs[0].block = release
	h.rec.calls = nil

	done := make(chan error, 1)
	go func() { done <- tx.Transmit([]byte("x")) }()

	require.Eventually(t, func() bool {
		return len(h.rec.trace()) == 2
	}, time.Second, time.Millisecond, "transmission did not reach play")

	shut := make(chan struct{})
	go func() {
		_ = tx.Shutdown()
		close(shut)
	}()

	select {
	case <-shut:
		t.Fatal("shutdown completed during a transmission")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	<-shut

	assert.Equal(t, []string{"gpio.on", "play x", "gpio.off", "gpio.close", "encoder.close"}, h.rec.trace())
}

func TestConcurrentOperations(t *testing.T) {
	h := newHarness()
	tx := h.controller()
	require.NoError(t, tx.Initialize(bothLines()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				_ = tx.Transmit([]byte("x"))
			case 1:
				tx.SetCorrection(float64(i))
			case 2:
				_ = tx.Status()
			case 3:
				_ = tx.Initialize(bothLines())
			}
		}(i)
	}
	wg.Wait()

	// Each on must be followed by its off before anything else touches the line.
	trace := h.rec.trace()
	for i, call := range trace {
		if call == "serial.on" {
			require.LessOrEqual(t, i+5, len(trace))
			assert.Equal(t, []string{"serial.on", "gpio.on", "play x", "serial.off", "gpio.off"}, trace[i:i+5])
		}
	}
}

func TestSend(t *testing.T) {
	h := newHarness()
	tx := h.controller()

	require.NoError(t, tx.Initialize(config(map[string]any{
		KeyGPIOPin: "17",
		KeyTxDelay: 20,
	})))
	h.rec.calls = nil

	n, err := tx.Send([]int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, len("[1 2 3]"), n)
	assert.Equal(t, []string{"gpio.on", "sleep 20ms", "play [1 2 3]", "gpio.off"}, h.rec.trace())
}

func TestSendRequiresKeyingLine(t *testing.T) {
	t.Run("uninitialized", func(t *testing.T) {
		h := newHarness()
		tx := h.controller()

		_, err := tx.Send([]int{1})
		assert.ErrorIs(t, err, ErrUninitialized)
		assert.Empty(t, h.rec.trace())
	})

	t.Run("no lines configured", func(t *testing.T) {
		h := newHarness()
		tx := h.controller()
		require.NoError(t, tx.Initialize(config(map[string]any{KeyGPIOUse: false})))

		n, err := tx.Send([]int{1})
		assert.ErrorIs(t, err, ErrUninitialized)
		assert.Zero(t, n)
		assert.Empty(t, h.rec.trace())
	})
}

func TestSendDisarmsWhenPlayFails(t *testing.T) {
	h := newHarness()
	h.playErr = errors.New("underrun")
	tx := h.controller()
	require.NoError(t, tx.Initialize(config(map[string]any{KeyGPIOPin: "17"})))
	h.rec.calls = nil

	_, err := tx.Send([]int{7})
	var playErr *PlayError
	require.ErrorAs(t, err, &playErr)
	assert.Equal(t, []string{"gpio.on", "play [7]", "gpio.off"}, h.rec.trace())
}

// A reload issued while a send is in flight must not take effect before
// the rendered data has been played by the encoder that rendered it.
func TestSendIsAtomicWithInitialize(t *testing.T) {
	h := newHarness()
	tx := h.controller()

	require.NoError(t, tx.Initialize(config(map[string]any{KeyGPIOPin: "4", KeySDRCorrection: 1.0})))
	release := make(chan struct{})
	h.encs[0].block = release
	h.rec.calls = nil

	done := make(chan error, 1)
	go func() {
		_, err := tx.Send([]int{1, 2})
		done <- err
	}()

	require.Eventually(t, func() bool {
		return len(h.rec.trace()) == 2
	}, time.Second, time.Millisecond, "send did not reach play")

	reinit := make(chan error, 1)
	go func() {
		reinit <- tx.Initialize(config(map[string]any{KeyGPIOPin: "4", KeySDRCorrection: 2.5}))
	}()

	select {
	case <-reinit:
		t.Fatal("initialize completed during a send")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-reinit)

	assert.Equal(t, []string{
		"gpio.on",
		"play [1 2]",
		"gpio.off",
		"gpio.close",
		"encoder.close",
		"gpio.open 4 invert=false",
	}, h.rec.trace())
	assert.Equal(t, 1.0, h.encs[0].correction)
	assert.Equal(t, 2.5, tx.Correction())
}

func TestWithSleeperIgnoresNil(t *testing.T) {
	h := newHarness()
	tx := h.controller(WithSleeper(nil))

	require.NoError(t, tx.Initialize(config(map[string]any{KeyGPIOPin: "17", KeyTxDelay: 5})))
	h.rec.calls = nil

	require.NotPanics(t, func() {
		require.NoError(t, tx.Transmit([]byte("x")))
	})
	assert.Equal(t, []string{"gpio.on", "sleep 5ms", "play x", "gpio.off"}, h.rec.trace())

	assert.NotNil(t, New(WithSleeper(nil)).sleep)
}
