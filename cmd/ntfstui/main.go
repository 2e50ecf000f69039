package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/shubham/ntfsresolver/internal/device"
	"github.com/shubham/ntfsresolver/internal/ntfs"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)
)

// State represents the current screen in the copy wizard.
type State int

const (
	StateWelcome State = iota
	StateSelectDevice
	StateEnterSource
	StateEnterOutput
	StateConfirm
	StateRunning
	StateResults
)

type model struct {
	state State
	width int

	devices        []device.Device
	deviceList     list.Model
	selectedDevice *device.Device

	sourceInput textinput.Model
	sourcePath  string

	outputInput textinput.Model
	outputPath  string

	recursive bool

	spinner   spinner.Model
	statusMsg string

	copiedCount int
	err         error
}

type deviceItem struct {
	device device.Device
}

func (i deviceItem) Title() string { return fmt.Sprintf("%s - %s", i.device.Path, i.device.Name) }
func (i deviceItem) Description() string {
	return fmt.Sprintf("%s | %s", i.device.SizeHuman, i.device.Filesystem)
}
func (i deviceItem) FilterValue() string { return i.device.Path }

type devicesLoadedMsg struct {
	devices []device.Device
	err     error
}

type copyCompleteMsg struct {
	count int
	err   error
}

func initialModel() model {
	sourceInput := textinput.New()
	sourceInput.Placeholder = `C:\Users\*\Documents\report.docx`
	sourceInput.Focus()
	sourceInput.Width = 60

	outputInput := textinput.New()
	outputInput.Placeholder = "./recovered"
	outputInput.SetValue("./recovered")
	outputInput.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return model{
		state:       StateWelcome,
		sourceInput: sourceInput,
		outputInput: outputInput,
		spinner:     s,
		outputPath:  "./recovered",
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.loadDevices())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != StateRunning {
				return m, tea.Quit
			}
		case "esc":
			if m.state > StateWelcome && m.state != StateRunning {
				m.state--
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.deviceList.Items() != nil {
			m.deviceList.SetSize(msg.Width-4, 15)
		}
		return m, nil

	case devicesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.devices = msg.devices
		items := make([]list.Item, len(msg.devices))
		for i, d := range msg.devices {
			items[i] = deviceItem{device: d}
		}
		m.deviceList = list.New(items, list.NewDefaultDelegate(), m.width-4, 15)
		m.deviceList.Title = "Select Device"
		m.deviceList.SetShowStatusBar(false)
		m.deviceList.SetFilteringEnabled(true)
		return m, nil

	case copyCompleteMsg:
		m.state = StateResults
		m.copiedCount = msg.count
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch m.state {
	case StateWelcome:
		return m.updateWelcome(msg)
	case StateSelectDevice:
		return m.updateSelectDevice(msg)
	case StateEnterSource:
		return m.updateEnterSource(msg)
	case StateEnterOutput:
		return m.updateEnterOutput(msg)
	case StateConfirm:
		return m.updateConfirm(msg)
	case StateRunning:
		return m, nil
	case StateResults:
		return m.updateResults(msg)
	}

	return m, nil
}

func (m model) updateWelcome(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		m.state = StateSelectDevice
	}
	return m, nil
}

func (m model) updateSelectDevice(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		selected := m.deviceList.SelectedItem()
		if selected != nil {
			dev := selected.(deviceItem).device
			m.selectedDevice = &dev
			m.state = StateEnterSource
			m.sourceInput.Focus()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.deviceList, cmd = m.deviceList.Update(msg)
	return m, cmd
}

func (m model) updateEnterSource(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			if m.sourceInput.Value() != "" {
				m.sourcePath = m.sourceInput.Value()
				m.state = StateEnterOutput
				m.outputInput.Focus()
			}
			return m, nil
		case "tab":
			m.recursive = !m.recursive
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.sourceInput, cmd = m.sourceInput.Update(msg)
	return m, cmd
}

func (m model) updateEnterOutput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		path := m.outputInput.Value()
		if path != "" {
			if strings.HasPrefix(path, "~") {
				home, _ := os.UserHomeDir()
				path = filepath.Join(home, path[1:])
			}
			m.outputPath = path
			m.state = StateConfirm
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.outputInput, cmd = m.outputInput.Update(msg)
	return m, cmd
}

func (m model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y", "enter":
			m.state = StateRunning
			m.statusMsg = "Copying..."
			return m, tea.Batch(m.spinner.Tick, m.runCopy())
		case "n", "N":
			m.state = StateSelectDevice
		}
	}
	return m, nil
}

func (m model) updateResults(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter", "q":
			return m, tea.Quit
		case "r":
			return initialModel(), nil
		}
	}
	return m, nil
}

func (m model) loadDevices() tea.Cmd {
	return func() tea.Msg {
		devices, err := device.List()
		return devicesLoadedMsg{devices: devices, err: err}
	}
}

func (m model) runCopy() tea.Cmd {
	devicePath := ""
	if m.selectedDevice != nil {
		devicePath = m.selectedDevice.Path
	}
	sourcePath := m.sourcePath
	outputPath := m.outputPath
	recursive := m.recursive

	return func() tea.Msg {
		opener := func(byte) (string, error) { return devicePath, nil }
		session, err := ntfs.NewSession(defaultCachePath(), false, opener)
		if err != nil {
			return copyCompleteMsg{err: err}
		}
		defer session.Close()

		count, err := session.Copy(sourcePath, outputPath, recursive)
		return copyCompleteMsg{count: count, err: err}
	}
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" NTFS Live Copy "))
	s.WriteString("\n\n")

	switch m.state {
	case StateWelcome:
		s.WriteString(m.viewWelcome())
	case StateSelectDevice:
		s.WriteString(m.deviceList.View())
	case StateEnterSource:
		s.WriteString(m.viewEnterSource())
	case StateEnterOutput:
		s.WriteString(m.viewEnterOutput())
	case StateConfirm:
		s.WriteString(m.viewConfirm())
	case StateRunning:
		s.WriteString(m.viewRunning())
	case StateResults:
		s.WriteString(m.viewResults())
	}

	if m.err != nil {
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press q to quit - esc to go back"))

	return s.String()
}

func (m model) viewWelcome() string {
	var s strings.Builder
	s.WriteString(subtitleStyle.Render("Copy files off a live NTFS volume"))
	s.WriteString("\n\n")
	s.WriteString("Reads the raw device directly, bypassing file locks held\n")
	s.WriteString("by the running OS. The volume is opened read-only.\n\n")
	s.WriteString(selectedStyle.Render("Press Enter to continue..."))
	return s.String()
}

func (m model) viewEnterSource() string {
	var s strings.Builder
	s.WriteString(subtitleStyle.Render("Source Path"))
	s.WriteString("\n\n")
	s.WriteString("Drive-relative path, '*' matches one path component:\n\n")
	s.WriteString(m.sourceInput.View())
	s.WriteString("\n\n")
	recur := "off"
	if m.recursive {
		recur = "on"
	}
	s.WriteString(fmt.Sprintf("Recursive: %s (tab to toggle)\n", recur))
	s.WriteString(helpStyle.Render("Press Enter to continue"))
	return s.String()
}

func (m model) viewEnterOutput() string {
	var s strings.Builder
	s.WriteString(subtitleStyle.Render("Destination Directory"))
	s.WriteString("\n\n")
	s.WriteString(m.outputInput.View())
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press Enter to continue"))
	return s.String()
}

func (m model) viewConfirm() string {
	var s strings.Builder
	s.WriteString(subtitleStyle.Render("Confirm"))
	s.WriteString("\n\n")
	if m.selectedDevice != nil {
		s.WriteString(fmt.Sprintf("  Device:    %s\n", m.selectedDevice.Path))
	}
	s.WriteString(fmt.Sprintf("  Source:    %s\n", m.sourcePath))
	s.WriteString(fmt.Sprintf("  Output:    %s\n", m.outputPath))
	s.WriteString(fmt.Sprintf("  Recursive: %v\n", m.recursive))
	s.WriteString("\n")
	s.WriteString(selectedStyle.Render("Press Y to start, N to go back"))
	return s.String()
}

func (m model) viewRunning() string {
	var s strings.Builder
	s.WriteString(m.spinner.View())
	s.WriteString(" ")
	s.WriteString(m.statusMsg)
	return s.String()
}

func (m model) viewResults() string {
	var s strings.Builder
	if m.err != nil {
		s.WriteString(errorStyle.Render("Copy finished with errors"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("%v\n", m.err))
	} else {
		s.WriteString(successStyle.Render("Copy complete"))
		s.WriteString("\n\n")
	}
	s.WriteString(fmt.Sprintf("Copied %d file(s) to %s\n", m.copiedCount, m.outputPath))
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Press R to run again - Q to quit"))
	return s.String()
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ntfscopy-cache"
	}
	return filepath.Join(home, ".cache", "ntfscopy", "pathcache.bin")
}

// main launches the interactive wizard only when stdout is a terminal;
// otherwise it tells the caller to use `ntfscopy copy` instead, since a
// bubbletea program driven from a pipe or a cron job has no one to read
// its screens.
func main() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "ntfstui requires an interactive terminal; use ntfscopy for scripted copies")
		os.Exit(1)
	}
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
