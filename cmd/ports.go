/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/internal/serialport"
	"github.com/allbin/go-sdrtx/internal/tui/colors"
)

// portsCmd represents the ports command
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports usable as keying lines",
	Long: `List the serial ports that can carry a keying pin:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*, serial*)

The configured serial.port is marked.`,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := serialport.ListPorts()
		exitOnError("Error listing ports", err)

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		ports = filterPorts(ports, filterType)
		if len(ports) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		configured := cfg.GetString(sdrtx.KeySerialPort)
		if tableFormat {
			fmt.Printf("Found %d serial port(s):\n\n", len(ports))
			fmt.Println(portsTable(ports, configured).View())
			return
		}
		for _, p := range ports {
			if p.Path == configured {
				fmt.Println(p.Path, "*")
				continue
			}
			fmt.Println(p.Path)
		}
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)

	portsCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	portsCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []serialport.PortInfo, filterType string) []serialport.PortInfo {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []serialport.PortInfo
	for _, port := range ports {
		name := strings.ToLower(port.Name)
		switch strings.ToLower(filterType) {
		case "usb":
			if strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, port)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, port)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") || strings.HasPrefix(name, "serial") {
				filtered = append(filtered, port)
			}
		}
	}
	return filtered
}

func portsTable(ports []serialport.PortInfo, configured string) table.Model {
	mark := lipgloss.NewStyle().Foreground(colors.Green).Bold(true)

	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		keying := table.NewStyledCell("", lipgloss.NewStyle())
		if p.Path == configured {
			keying = table.NewStyledCell("serial.port", mark)
		}
		rows = append(rows, table.NewRow(table.RowData{
			"port":   p.Path,
			"type":   p.Description,
			"keying": keying,
		}))
	}

	return table.New([]table.Column{
		table.NewColumn("port", "Port", 16),
		table.NewColumn("type", "Type", 22),
		table.NewColumn("keying", "Keying", 12),
	}).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true)).
		WithBaseStyle(lipgloss.NewStyle().BorderForeground(colors.Surface2).Align(lipgloss.Left))
}
