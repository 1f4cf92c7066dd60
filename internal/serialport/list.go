package serialport

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var portPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^serial\d+$`), // Raspberry Pi aliases
}

// PortInfo describes a serial port candidate for keying
type PortInfo struct {
	Name        string
	Path        string
	Description string
}

// ListPorts returns the serial ports found in /dev, sorted by path
func ListPorts() ([]PortInfo, error) {
	return listPorts("/dev")
}

func listPorts(devDir string) ([]PortInfo, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var ports []PortInfo
	for _, entry := range entries {
		name := entry.Name()
		if !matchesPortPattern(name) {
			continue
		}

		fullPath := filepath.Join(devDir, name)
		if !isCharacterDevice(fullPath) {
			continue
		}
		ports = append(ports, PortInfo{
			Name:        name,
			Path:        fullPath,
			Description: portDescription(name),
		})
	}

	sort.Slice(ports, func(i, j int) bool { return ports[i].Path < ports[j].Path })
	return ports, nil
}

func matchesPortPattern(name string) bool {
	for _, pattern := range portPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// portDescription provides human-readable descriptions for different port types
func portDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"), strings.HasPrefix(name, "serial"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}
