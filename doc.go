// Package sdrtx coordinates the transmission path of an SDR-based paging
// transmitter.
//
// A Controller owns up to two keying lines (a serial RTS/DTR pin and a GPIO
// pin) and an encoder bound to a radio device. A transmission keys the
// lines, waits a guard delay, plays the encoded waveform and unkeys the
// lines again, whatever the outcome.
//
// # Basic Usage
//
// Build the controller from a configuration source. *viper.Viper is one:
//
//	cfg, err := sdrtx.LoadConfig("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tx := sdrtx.New(sdrtx.WithLogger(slog.Default()))
//	if err := tx.Initialize(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer tx.Shutdown()
//
//	data, err := tx.Encode(encoder.TestPage())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = tx.Transmit(data)
//
// Send does both steps while holding the controller, so a concurrent
// Initialize cannot replace the encoder in between:
//
//	n, err := tx.Send(encoder.TestPage())
//
// # Configuration Keys
//
//   - txDelay: guard delay in milliseconds between keying and playback (0)
//   - invert: active-low keying lines (false)
//   - serial.use, serial.pin, serial.port: serial keying line (false, DTR, /dev/ttyS0)
//   - gpio.use, gpio.pin, gpio.root: GPIO keying line (true, none, /sys/class/gpio)
//   - sdr.device, sdr.correction, sdr.player: encoder device, clock correction in ppm, playback command (default, 0, aplay -q)
//
// Environment variables override file values, e.g. SDRTX_SERIAL_USE=true.
//
// # Error Handling
//
// Initialize is all-or-nothing: when a resource cannot be built the ones
// already built are released and a *ResourceError is returned.
// Transmit returns ErrUninitialized, *ArmError or *PlayError. A line that
// fails to unkey is only logged.
//
//	var armErr *sdrtx.ArmError
//	if errors.As(err, &armErr) {
//	    // armErr.Line could not be keyed
//	}
//
// # Concurrency
//
// Every operation is serialized. A Shutdown or Initialize issued during a
// transmission waits until the lines are unkeyed.
package sdrtx
