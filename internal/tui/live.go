package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/skyward-labs/flightloop/internal/axis"
	"github.com/skyward-labs/flightloop/internal/loop"
	"github.com/skyward-labs/flightloop/internal/plant"
)

const historyCapacity = 120

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

	nominalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

type TickMsg time.Time

var paramKeys = []string{"Kp", "Ki", "Kd"}

// Model drives the control loop cycle-by-cycle from the UI tick so
// the flight, the plant and the display stay in lockstep.
type Model struct {
	lp     *loop.Loop
	plant  *plant.Aircraft
	period time.Duration

	altHist []float64
	spdHist []float64

	running  bool
	selected axis.Name
	paramSel int
	showHelp bool
}

func NewModel(lp *loop.Loop, ac *plant.Aircraft, period time.Duration) Model {
	return Model{
		lp:      lp,
		plant:   ac,
		period:  period,
		altHist: make([]float64, 0, historyCapacity),
		spdHist: make([]float64, 0, historyCapacity),
		running: true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.period, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "1":
			m.selected = axis.Altitude
		case "2":
			m.selected = axis.Heading
		case "3":
			m.selected = axis.Speed
		case "r":
			m.lp.ResetAxis(m.selected)
		case "tab":
			m.paramSel = (m.paramSel + 1) % len(paramKeys)
		case "up", "k":
			m.adjustGain(1.1)
		case "down", "j":
			m.adjustGain(1 / 1.1)
		case "h", "?":
			m.showHelp = !m.showHelp
		}
		return m, nil

	case TickMsg:
		if m.running {
			m.lp.Cycle()
			m.plant.Step(m.period.Seconds())
			m.push()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) adjustGain(factor float64) {
	key := paramKeys[m.paramSel]
	cur := m.lp.PID(m.selected).GetParams()[key]
	if cur == 0 {
		cur = 1e-5
	}
	m.lp.TunePID(m.selected, key, cur*factor)
}

func (m *Model) push() {
	m.altHist = appendCapped(m.altHist, m.plant.AltitudeFt)
	m.spdHist = appendCapped(m.spdHist, m.plant.SpeedKts)
}

func appendCapped(hist []float64, v float64) []float64 {
	if len(hist) >= historyCapacity {
		copy(hist, hist[1:])
		hist = hist[:len(hist)-1]
	}
	return append(hist, v)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("flightloop  cycle %d  t=%.1fs", m.lp.Cycles(), m.plant.Time())))
	b.WriteString("\n")

	for ax := axis.Name(0); ax < axis.NumAxes; ax++ {
		b.WriteString(m.axisLine(ax))
		b.WriteString("\n")
	}

	c := m.lp.Counters()
	b.WriteString(labelStyle.Render("events"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("failovers %d  sensor failures %d  faults %d  overruns %d",
		c.Failovers.Value(), c.SensorFailures.Value(), c.ComputationFaults.Value(), c.Overruns.Value())))
	b.WriteString("\n")

	if len(m.altHist) > 1 {
		b.WriteString(graphStyle.Render(asciigraph.Plot(m.altHist, asciigraph.Height(8), asciigraph.Caption("altitude (ft)"))))
		b.WriteString("\n")
	}
	if len(m.spdHist) > 1 {
		b.WriteString(graphStyle.Render(asciigraph.Plot(m.spdHist, asciigraph.Height(6), asciigraph.Caption("speed (kts)"))))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(helpStyle.Render("space pause | 1/2/3 select axis | tab gain | up/down tune | r reset axis | q quit"))
	} else {
		b.WriteString(helpStyle.Render("h help | q quit"))
	}
	return b.String()
}

func (m Model) axisLine(ax axis.Name) string {
	st := m.lp.Axis(ax)
	h := m.lp.Health(ax)

	name := labelStyle.Render(ax.String())
	if ax == m.selected {
		name = selectedStyle.Render(fmt.Sprintf("%-10s", ax.String()))
	}

	gains := m.lp.PID(ax).GetParams()
	parts := make([]string, 0, len(paramKeys))
	for i, key := range paramKeys {
		s := fmt.Sprintf("%s=%.4g", key, gains[key])
		if ax == m.selected && i == m.paramSel {
			s = selectedStyle.Render(s)
		}
		parts = append(parts, s)
	}

	line := fmt.Sprintf("tgt %8.1f  meas %8.1f  out %6.3f  %s  %s",
		st.Target, st.Measurement, st.Output, healthStyle(h).Render(h.String()), strings.Join(parts, " "))
	return name + valueStyle.Render(line)
}

func healthStyle(h axis.Health) lipgloss.Style {
	switch h {
	case axis.Nominal:
		return nominalStyle
	case axis.Degraded:
		return degradedStyle
	default:
		return failedStyle
	}
}

// Run starts the live view and blocks until the user quits.
func Run(lp *loop.Loop, ac *plant.Aircraft, period time.Duration) error {
	p := tea.NewProgram(NewModel(lp, ac, period))
	_, err := p.Run()
	return err
}
