// Package encoder turns pager codewords into an audio waveform and plays it
// on a radio device.
//
// The Encoder interface is what a transmitter drives. AudioEncoder is a
// baseline implementation: each codeword becomes 32 NRZ symbols, MSB
// first, rendered as signed 16-bit little-endian mono PCM and piped to an
// external player such as aplay.
package encoder

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// Encoder converts codewords into a playable waveform for one device
type Encoder interface {
	SetCorrection(ppm float64)
	Correction() float64
	Encode(codewords []int) ([]byte, error)
	Play(data []byte) error
}

// DefaultDevice is the ALSA default PCM
const DefaultDevice = "default"

var (
	ErrNoDevice      = errors.New("no audio device configured")
	ErrInvalidConfig = errors.New("invalid encoder configuration")
	ErrEmptyPlayer   = errors.New("no player command configured")
)

// Config holds the waveform and playback parameters
type Config struct {
	SampleRate  int           // samples per second
	BaudRate    int           // symbols per second
	Amplitude   int16         // peak sample value
	Invert      bool          // swap the symbol polarity
	Player      []string      // command and leading arguments; device and format are appended
	PlayTimeout time.Duration // 0 means no limit
}

// Option is a functional option for configuring an AudioEncoder
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		SampleRate: 48000,
		BaudRate:   1200,
		Amplitude:  math.MaxInt16 / 2,
		Player:     []string{"aplay", "-q"},
	}
}

// WithSampleRate sets the PCM sample rate
func WithSampleRate(rate int) Option {
	return func(c *Config) error {
		if rate <= 0 {
			return ErrInvalidConfig
		}
		c.SampleRate = rate
		return nil
	}
}

// WithBaudRate sets the symbol rate (512, 1200 or 2400 for POCSAG)
func WithBaudRate(baud int) Option {
	return func(c *Config) error {
		if baud <= 0 {
			return ErrInvalidConfig
		}
		c.BaudRate = baud
		return nil
	}
}

// WithAmplitude sets the peak sample value
func WithAmplitude(amplitude int16) Option {
	return func(c *Config) error {
		if amplitude <= 0 {
			return ErrInvalidConfig
		}
		c.Amplitude = amplitude
		return nil
	}
}

// WithInvert swaps the symbol polarity
func WithInvert(invert bool) Option {
	return func(c *Config) error {
		c.Invert = invert
		return nil
	}
}

// WithPlayer sets the playback command. The encoder appends
// "-D <device> -t raw -f S16_LE -r <rate> -c 1".
func WithPlayer(command ...string) Option {
	return func(c *Config) error {
		if len(command) == 0 || command[0] == "" {
			return ErrEmptyPlayer
		}
		c.Player = command
		return nil
	}
}

// WithPlayTimeout bounds a single playback
func WithPlayTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.PlayTimeout = d
		return nil
	}
}

// AudioEncoder renders codewords as NRZ PCM and plays them with an
// external player
type AudioEncoder struct {
	mu         sync.Mutex
	device     string
	config     Config
	correction float64
}

var _ Encoder = (*AudioEncoder)(nil)

// New returns an encoder bound to device
func New(device string, opts ...Option) (*AudioEncoder, error) {
	if device == "" {
		return nil, ErrNoDevice
	}

	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	return &AudioEncoder{
		device: device,
		config: config,
	}, nil
}

// Device returns the device the encoder plays on
func (e *AudioEncoder) Device() string {
	return e.device
}

// SetCorrection sets the clock correction in parts per million
func (e *AudioEncoder) SetCorrection(ppm float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.correction = ppm
}

// Correction returns the clock correction in parts per million
func (e *AudioEncoder) Correction() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.correction
}

// samplesPerSymbol is the corrected number of samples per symbol. A
// positive correction means the device clock runs fast, so more samples
// are needed for the same symbol duration.
func (e *AudioEncoder) samplesPerSymbol() float64 {
	nominal := float64(e.config.SampleRate) / float64(e.config.BaudRate)
	return nominal * (1 + e.Correction()/1e6)
}

// Encode renders codewords as PCM. Only the low 32 bits of each value
// are used. Symbol boundaries are placed on the corrected clock, so the
// rounding error never accumulates across a long transmission.
func (e *AudioEncoder) Encode(codewords []int) ([]byte, error) {
	sps := e.samplesPerSymbol()
	if sps < 1 {
		return nil, fmt.Errorf("%w: %.3f samples per symbol", ErrInvalidConfig, sps)
	}

	symbols := len(codewords) * 32
	total := int(math.Round(float64(symbols) * sps))

	buf := bytes.NewBuffer(make([]byte, 0, total*2))
	sample := make([]byte, 2)

	written := 0
	for i, word := range codewords {
		w := uint32(word)
		for bit := 31; bit >= 0; bit-- {
			symbol := i*32 + (31 - bit)
			end := int(math.Round(float64(symbol+1) * sps))

			// POCSAG: a 1 bit is the lower frequency, i.e. negative deviation.
			one := w&(1<<uint(bit)) != 0
			value := e.config.Amplitude
			if one != e.config.Invert {
				value = -value
			}
			binary.LittleEndian.PutUint16(sample, uint16(value))

			for ; written < end; written++ {
				buf.Write(sample)
			}
		}
	}

	return buf.Bytes(), nil
}

// Play pipes data into the player and waits for it to finish
func (e *AudioEncoder) Play(data []byte) error {
	ctx := context.Background()
	if e.config.PlayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.PlayTimeout)
		defer cancel()
	}

	args := append([]string{}, e.config.Player[1:]...)
	args = append(args,
		"-D", e.device,
		"-t", "raw",
		"-f", "S16_LE",
		"-r", strconv.Itoa(e.config.SampleRate),
		"-c", "1",
	)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.config.Player[0], args...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return fmt.Errorf("play on %s: %w: %s", e.device, err, msg)
		}
		return fmt.Errorf("play on %s: %w", e.device, err)
	}
	return nil
}
