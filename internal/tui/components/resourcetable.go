package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/internal/tui/colors"
)

const (
	columnKeyResource = "resource"
	columnKeyState    = "state"
	columnKeyDetail   = "detail"
)

// ResourceRows returns one row per transmitter resource in st
func ResourceRows(st sdrtx.Status) []table.Row {
	owned := lipgloss.NewStyle().Foreground(colors.Green)
	absent := lipgloss.NewStyle().Foreground(colors.Overlay0)

	line := func(name, detail string) table.Row {
		state := table.NewStyledCell("not used", absent)
		if detail != "" {
			state = table.NewStyledCell("owned", owned)
		}
		return table.NewRow(table.RowData{
			columnKeyResource: name,
			columnKeyState:    state,
			columnKeyDetail:   detail,
		})
	}

	encState := table.NewStyledCell("not built", absent)
	encDetail := ""
	if st.Encoder {
		encState = table.NewStyledCell("ready", owned)
		encDetail = fmt.Sprintf("%s, %+.2f ppm", deviceName(st.Device), st.Correction)
	}

	return []table.Row{
		line("serial", st.Serial),
		line("gpio", st.GPIO),
		table.NewRow(table.RowData{
			columnKeyResource: "encoder",
			columnKeyState:    encState,
			columnKeyDetail:   encDetail,
		}),
		table.NewRow(table.RowData{
			columnKeyResource: "tx delay",
			columnKeyState:    "",
			columnKeyDetail:   st.TxDelay.String(),
		}),
	}
}

func deviceName(device string) string {
	if device == "" {
		return "(default)"
	}
	return device
}

// NewResourceTable renders the transmitter resources as a table
func NewResourceTable(st sdrtx.Status) table.Model {
	columns := []table.Column{
		table.NewColumn(columnKeyResource, "Resource", 10),
		table.NewColumn(columnKeyState, "State", 10),
		table.NewColumn(columnKeyDetail, "Detail", 36),
	}

	return table.New(columns).
		WithRows(ResourceRows(st)).
		BorderRounded().
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(colors.Text).
			BorderForeground(colors.Surface2).
			Align(lipgloss.Left)).
		HeaderStyle(lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true)).
		Focused(false)
}
