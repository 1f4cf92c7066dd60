package keys

import "github.com/charmbracelet/bubbles/key"

// ConsoleKeys are the transmitter console bindings
type ConsoleKeys struct {
	CommonKeys
	TestPage       key.Binding
	Reload         key.Binding
	CorrectionUp   key.Binding
	CorrectionDown key.Binding
	Clear          key.Binding
}

func NewConsoleKeys() ConsoleKeys {
	return ConsoleKeys{
		CommonKeys: NewCommonKeys(),
		TestPage: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "send test page"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload config"),
		),
		CorrectionUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "correction +0.1 ppm"),
		),
		CorrectionDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "correction -0.1 ppm"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear log"),
		),
	}
}

func (k ConsoleKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.TestPage, k.Reload, k.Help, k.Quit}
}

func (k ConsoleKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.TestPage, k.Reload, k.Clear},
		{k.CorrectionUp, k.CorrectionDown},
		{k.Help, k.Quit},
	}
}
