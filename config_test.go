package sdrtx

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-sdrtx/keying"
)

func TestReadSettingsDefaults(t *testing.T) {
	s, err := ReadSettings(viper.New())
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
	assert.True(t, s.GPIOUse)
	assert.False(t, s.SerialUse)
	assert.Zero(t, s.TxDelay)
}

func TestReadSettings(t *testing.T) {
	v := config(map[string]any{
		KeyTxDelay:       250,
		KeyInvert:        true,
		KeySerialUse:     true,
		KeySerialPin:     "rts",
		KeySerialPort:    "/dev/ttyUSB1",
		KeyGPIOUse:       false,
		KeyGPIOPin:       "BCM27",
		KeyGPIORoot:      "/tmp/gpio",
		KeySDRDevice:     "hw:1,0",
		KeySDRCorrection: -4.5,
		KeySDRPlayer:     "aplay -q --buffer-time=50000",
	})

	s, err := ReadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, Settings{
		TxDelay:    250 * time.Millisecond,
		Invert:     true,
		SerialUse:  true,
		SerialPin:  "rts",
		SerialPort: "/dev/ttyUSB1",
		GPIOUse:    false,
		GPIOPin:    "BCM27",
		GPIORoot:   "/tmp/gpio",
		Device:     "hw:1,0",
		Correction: -4.5,
		Player:     []string{"aplay", "-q", "--buffer-time=50000"},
	}, s)
}

func TestReadSettingsRejectsNegativeDelay(t *testing.T) {
	_, err := ReadSettings(config(map[string]any{KeyTxDelay: -1}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewConfigMatchesDefaults(t *testing.T) {
	v := NewConfig()

	s, err := ReadSettings(v)
	require.NoError(t, err)
	assert.True(t, s.GPIOUse)
	assert.Equal(t, "DTR", s.SerialPin)
	assert.Equal(t, "/dev/ttyS0", s.SerialPort)
	assert.Equal(t, DefaultSettings().Player, s.Player)
	assert.Equal(t, "default", s.Device)
	assert.Equal(t, "info", v.GetString(KeyLogLevel))
}

func TestInitializeFromDefaultConfig(t *testing.T) {
	tx := New(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithGPIOLineFunc(func(pin string, invert bool) (keying.Line, error) {
			return &fakeLine{name: "gpio", rec: &recorder{}}, nil
		}),
	)

	require.NoError(t, tx.Initialize(NewConfig()), "the default encoder must accept the default device")
	st := tx.Status()
	assert.True(t, st.Initialized)
	assert.Equal(t, "default", st.Device)
	require.NoError(t, tx.Shutdown())
}

func TestNewConfigEnvOverride(t *testing.T) {
	t.Setenv("SDRTX_SERIAL_USE", "true")
	t.Setenv("SDRTX_TXDELAY", "75")
	t.Setenv("SDRTX_SDR_DEVICE", "hw:2")

	s, err := ReadSettings(NewConfig())
	require.NoError(t, err)
	assert.True(t, s.SerialUse)
	assert.Equal(t, 75*time.Millisecond, s.TxDelay)
	assert.Equal(t, "hw:2", s.Device)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdrtx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
txDelay: 120
invert: true
serial:
  use: true
  pin: RTS
  port: /dev/ttyUSB0
gpio:
  use: false
sdr:
  device: hw:0
  correction: 1.25
`), 0o644))

	v, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, v.ConfigFileUsed())

	s, err := ReadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, 120*time.Millisecond, s.TxDelay)
	assert.True(t, s.Invert)
	assert.True(t, s.SerialUse)
	assert.Equal(t, "RTS", s.SerialPin)
	assert.False(t, s.GPIOUse)
	assert.Equal(t, "hw:0", s.Device)
	assert.Equal(t, 1.25, s.Correction)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestLoadConfigSearch(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	v, err := LoadConfig("")
	require.NoError(t, err, "no config file falls back to defaults")
	assert.Empty(t, v.ConfigFileUsed())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sdrtx.yaml"), []byte("gpio:\n  pin: \"22\"\n"), 0o644))
	v, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "22", v.GetString(KeyGPIOPin))
}
