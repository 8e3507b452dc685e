package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-midiroll/midi"
	"go-midiroll/render"
	"go-midiroll/roll"
	"go-midiroll/theme"
)

// Roll is the read side of the timeline.
type Roll interface {
	roll.Sampler
	Len() int
}

type keyMap struct {
	Pause key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeys() keyMap {
	return keyMap{
		Pause: key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

// rows taken by the header and the help line
const chromeRows = 3

type Model struct {
	Roll     Roll
	Source   midi.Source
	Theme    *theme.Theme
	Lookback time.Duration
	Interval time.Duration

	keys     keyMap
	help     help.Model
	width    int
	height   int
	frame    []roll.Bucket
	elapsed  time.Duration
	quitting bool
}

type tickMsg time.Time

func NewModel(r Roll, src midi.Source, th *theme.Theme, lookback, interval time.Duration) Model {
	if th == nil {
		th = theme.New(nil)
	}
	h := help.New()
	h.Styles.ShortKey = lipgloss.NewStyle().Foreground(th.Accent())
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(th.Muted())
	return Model{
		Roll:     r,
		Source:   src,
		Theme:    th,
		Lookback: lookback,
		Interval: interval,
		keys:     defaultKeys(),
		help:     h,
		width:    80,
		height:   24,
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick(m.Interval)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			if p, ok := m.Source.(midi.Pauser); ok {
				p.TogglePause()
			}
		}

	case tickMsg:
		m = m.sample()
		return m, tick(m.Interval)
	}

	return m, nil
}

// sample refreshes the frame from the timeline, one bucket per column.
func (m Model) sample() Model {
	epoch := m.Source.Epoch()
	if epoch.IsZero() || m.width <= 0 {
		m.frame = nil
		return m
	}
	begin, end := render.Window(epoch, m.Lookback)
	m.elapsed = end
	m.frame = m.Roll.Sample(begin, end, m.width)
	return m
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	state, stateColor := "LIVE", m.Theme.Active()
	if p, ok := m.Source.(midi.Pauser); ok {
		state = "PLAY"
		if p.Paused() {
			state, stateColor = "PAUSE", m.Theme.Warning()
		}
	}
	header := headerStyle.Render("go-midiroll  "+m.Source.Name()+"  ") +
		lipgloss.NewStyle().Foreground(stateColor).Bold(true).Render(state) +
		lipgloss.NewStyle().Foreground(m.Theme.FG()).Render(fmt.Sprintf("  %s  notes:%d", formatElapsed(m.elapsed), m.Roll.Len())) +
		dimStyle.Render(fmt.Sprintf("  window:%v", m.Lookback))

	rows := m.height - chromeRows
	if rows < 1 {
		rows = 1
	}

	var out strings.Builder
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(m.grid(rows))
	out.WriteString("\n")
	out.WriteString(m.help.View(m.keys))
	return out.String()
}

// keyRow maps a MIDI key to a grid row: key 64 sits in the middle, higher
// keys above.
func keyRow(rows int, key uint8) int {
	return rows/2 - int(key) + 64
}

// rowKey is the inverse of keyRow; ok is false outside 0-127.
func rowKey(rows, row int) (uint8, bool) {
	k := rows/2 + 64 - row
	if k < 0 || k > 127 {
		return 0, false
	}
	return uint8(k), true
}

// grid draws the frame, one column per bucket, colored by channel.
func (m Model) grid(rows int) string {
	cols := m.width
	cells := make([][]int, rows) // channel+1, 0 = empty
	for r := range cells {
		cells[r] = make([]int, cols)
	}
	for x, bucket := range m.frame {
		if x >= cols {
			break
		}
		for _, v := range bucket {
			if r := keyRow(rows, v.Key); r >= 0 && r < rows {
				cells[r][x] = int(v.Channel) + 1
			}
		}
	}

	guide := lipgloss.NewStyle().Foreground(m.Theme.BG())
	styles := make(map[int]lipgloss.Style)
	style := func(c int) lipgloss.Style {
		s, ok := styles[c]
		if !ok {
			s = lipgloss.NewStyle().Foreground(m.Theme.Channel(uint8(c - 1)))
			styles[c] = s
		}
		return s
	}

	var out strings.Builder
	for r, line := range cells {
		k, ok := rowKey(rows, r)
		empty := string(m.Theme.Symbols.Empty)
		if ok && k%12 == 0 {
			empty = guide.Render(string(m.Theme.Symbols.C))
		}

		// runs of equal cells share one style render
		for x := 0; x < len(line); {
			c := line[x]
			end := x + 1
			for end < len(line) && line[end] == c {
				end++
			}
			if c == 0 {
				out.WriteString(strings.Repeat(empty, end-x))
			} else {
				out.WriteString(style(c).Render(strings.Repeat(string(m.Theme.Symbols.Note), end-x)))
			}
			x = end
		}
		if r < rows-1 {
			out.WriteString("\n")
		}
	}
	return out.String()
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(100 * time.Millisecond)
	return fmt.Sprintf("%02d:%04.1f", int(d.Minutes()), (d % time.Minute).Seconds())
}
