package sdrtx

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/allbin/go-sdrtx/encoder"
	"github.com/allbin/go-sdrtx/keying"
)

// Configuration keys read by Initialize
const (
	KeyTxDelay       = "txDelay"
	KeyInvert        = "invert"
	KeySerialUse     = "serial.use"
	KeySerialPin     = "serial.pin"
	KeySerialPort    = "serial.port"
	KeyGPIOUse       = "gpio.use"
	KeyGPIOPin       = "gpio.pin"
	KeyGPIORoot      = "gpio.root"
	KeySDRDevice     = "sdr.device"
	KeySDRCorrection = "sdr.correction"
	KeySDRPlayer     = "sdr.player"
)

// Keys used by the command line tools
const (
	KeyLogLevel = "log.level"
	KeyLogFile  = "log.file"
	KeyHTTPAddr = "http.addr"
)

// EnvPrefix prefixes environment overrides, e.g. SDRTX_SERIAL_USE
const EnvPrefix = "SDRTX"

// Source is a typed key-value configuration lookup. *viper.Viper
// satisfies it.
type Source interface {
	IsSet(key string) bool
	GetInt(key string) int
	GetBool(key string) bool
	GetString(key string) string
	GetFloat64(key string) float64
}

var _ Source = (*viper.Viper)(nil)

// Settings is the parsed form of a configuration Source
type Settings struct {
	TxDelay    time.Duration
	Invert     bool
	SerialUse  bool
	SerialPin  string
	SerialPort string
	GPIOUse    bool
	GPIOPin    string
	GPIORoot   string
	Device     string
	Correction float64
	Player     []string
}

// DefaultSettings returns the settings used for unset keys
func DefaultSettings() Settings {
	return Settings{
		GPIOUse:  true,
		GPIORoot: keying.DefaultSysfsRoot,
		Device:   encoder.DefaultDevice,
		Player:   []string{"aplay", "-q"},
	}
}

// ReadSettings reads the transmitter keys from src, falling back to
// DefaultSettings for keys that are not set
func ReadSettings(src Source) (Settings, error) {
	s := DefaultSettings()

	if src.IsSet(KeyTxDelay) {
		ms := src.GetInt(KeyTxDelay)
		if ms < 0 {
			return Settings{}, fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidConfig, KeyTxDelay, ms)
		}
		s.TxDelay = time.Duration(ms) * time.Millisecond
	}
	if src.IsSet(KeyInvert) {
		s.Invert = src.GetBool(KeyInvert)
	}
	if src.IsSet(KeySerialUse) {
		s.SerialUse = src.GetBool(KeySerialUse)
	}
	s.SerialPin = src.GetString(KeySerialPin)
	s.SerialPort = src.GetString(KeySerialPort)
	if src.IsSet(KeyGPIOUse) {
		s.GPIOUse = src.GetBool(KeyGPIOUse)
	}
	s.GPIOPin = src.GetString(KeyGPIOPin)
	if root := src.GetString(KeyGPIORoot); root != "" {
		s.GPIORoot = root
	}
	if device := src.GetString(KeySDRDevice); device != "" {
		s.Device = device
	}
	if src.IsSet(KeySDRCorrection) {
		s.Correction = src.GetFloat64(KeySDRCorrection)
	}
	if player := strings.Fields(src.GetString(KeySDRPlayer)); len(player) > 0 {
		s.Player = player
	}

	return s, nil
}

// NewConfig returns a viper instance carrying every default and reading
// SDRTX_* environment overrides
func NewConfig() *viper.Viper {
	v := viper.New()

	d := DefaultSettings()
	v.SetDefault(KeyTxDelay, 0)
	v.SetDefault(KeyInvert, false)
	v.SetDefault(KeySerialUse, false)
	v.SetDefault(KeySerialPin, "DTR")
	v.SetDefault(KeySerialPort, "/dev/ttyS0")
	v.SetDefault(KeyGPIOUse, d.GPIOUse)
	v.SetDefault(KeyGPIOPin, "")
	v.SetDefault(KeyGPIORoot, d.GPIORoot)
	v.SetDefault(KeySDRDevice, d.Device)
	v.SetDefault(KeySDRCorrection, 0.0)
	v.SetDefault(KeySDRPlayer, strings.Join(d.Player, " "))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyHTTPAddr, "127.0.0.1:8073")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// ConfigDirs returns the directories searched for sdrtx.yaml, most
// specific first
func ConfigDirs() []string {
	dirs := []string{filepath.Join(xdg.ConfigHome, "sdrtx")}
	for _, dir := range xdg.ConfigDirs {
		dirs = append(dirs, filepath.Join(dir, "sdrtx"))
	}
	return append(dirs, ".")
}

// LoadConfig reads the configuration file at path. With an empty path
// sdrtx.{yaml,toml,json} is searched in ConfigDirs and a missing file
// leaves the defaults in place.
func LoadConfig(path string) (*viper.Viper, error) {
	v := NewConfig()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sdrtx")
		for _, dir := range ConfigDirs() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return v, nil
}
