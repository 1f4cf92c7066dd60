package serialport

// Config holds the configuration for a serial port opened for modem line control
type Config struct {
	BaudRate   int
	InitialRTS *bool // nil leaves RTS as the driver set it
	InitialDTR *bool
	Exclusive  bool // TIOCEXCL: refuse further opens of the device
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:  9600,
		Exclusive: true,
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := getBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithInitialRTS sets the RTS state applied right after opening
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &state
		return nil
	}
}

// WithInitialDTR sets the DTR state applied right after opening
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.InitialDTR = &state
		return nil
	}
}

// WithExclusive controls whether the port is locked against other openers
func WithExclusive(exclusive bool) Option {
	return func(c *Config) error {
		c.Exclusive = exclusive
		return nil
	}
}
