package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/drumsmith-go"
	"github.com/cbegin/drumsmith-go/internal/pattern"
	"github.com/cbegin/drumsmith-go/internal/project"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff8800"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff"))
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#444"))
	playheadStyle = lipgloss.NewStyle().Reverse(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f55"))
)

// arpRow is the cursor row below the six drum rows.
const arpRow = int(pattern.NumInstruments)

type model struct {
	player *drumsmith.Player
	events <-chan drumsmith.PlaybackEvent
	proj   *project.Project
	path   string
	slot   int

	arrange    bool
	arrPattern int
	arrStep    int

	row, col  int
	playhead  int
	status    string
	statusErr bool
	quitting  bool
}

type playbackMsg drumsmith.PlaybackEvent

func listenForEvents(ch <-chan drumsmith.PlaybackEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return playbackMsg(ev)
	}
}

func newModel(pl *drumsmith.Player, proj *project.Project, path string, slot int) model {
	m := model{
		player:   pl,
		events:   pl.Watch(),
		proj:     proj,
		path:     path,
		slot:     slot,
		playhead: -1,
	}
	if err := pl.Load(proj.Bank, slot); err != nil {
		m.status = fmt.Sprintf("slot %d empty, editing a new pattern", slot+1)
	}
	return m
}

func (m *model) playArrangement() error {
	m.arrange = true
	return m.player.PlayArrangement(m.proj.Arrangement.Patterns())
}

func (m model) Init() tea.Cmd {
	return listenForEvents(m.events)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case playbackMsg:
		switch msg.Kind {
		case drumsmith.EventStep:
			m.playhead = msg.Step
		case drumsmith.EventArrangementStep:
			m.arrPattern, m.arrStep = msg.Pattern, msg.Step
			m.playhead = msg.Step
		case drumsmith.EventArrangementEnded:
			m.playhead = -1
			m.setStatus("arrangement finished", false)
		}
		return m, listenForEvents(m.events)

	case tea.KeyMsg:
		if m.arrange {
			return m.updateArrange(msg)
		}
		return m.updateEdit(msg)
	}
	return m, nil
}

func (m model) updateArrange(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.player.ResetArrangement()
		return m, tea.Quit
	case " ", "p":
		if _, _, playing := m.player.ArrangementPosition(); playing {
			m.player.PauseArrangement()
			m.setStatus("paused", false)
		} else if err := m.player.ResumeArrangement(); err != nil {
			m.setStatus(drumsmith.Message(err), true)
		} else {
			m.setStatus("", false)
		}
	case "r":
		m.player.ResetArrangement()
		m.arrPattern, m.arrStep, m.playhead = 0, 0, -1
		m.setStatus("rewound", false)
	case "e":
		m.player.ResetArrangement()
		m.arrange = false
		m.playhead = -1
	}
	return m, nil
}

func (m model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.player.Stop()
		return m, tea.Quit

	case "h", "left":
		if m.col > 0 {
			m.col--
		}
	case "l", "right":
		if m.col < drumsmith.Steps-1 {
			m.col++
		}
	case "k", "up":
		if m.row > 0 {
			m.row--
		}
	case "j", "down":
		if m.row < arpRow {
			m.row++
		}

	case " ", "enter":
		row, col := m.row, m.col
		m.edit(func(p *drumsmith.Pattern) {
			if row == arpRow {
				if p.Arp.Pattern[col].IsRest() {
					p.Arp.StepNote(col, 0)
				} else {
					p.Arp.Pattern[col] = drumsmith.Rest
				}
				return
			}
			p.Sequence.Toggle(drumsmith.Instrument(row), col)
		})
	case ".", ">":
		col := m.col
		m.edit(func(p *drumsmith.Pattern) { p.Arp.StepNote(col, 1) })
	case ",", "<":
		col := m.col
		m.edit(func(p *drumsmith.Pattern) { p.Arp.StepNote(col, -1) })
	case "o":
		m.edit(func(p *drumsmith.Pattern) { p.Arp.ShiftOctave(1) })
	case "O":
		m.edit(func(p *drumsmith.Pattern) { p.Arp.ShiftOctave(-1) })

	case "x":
		if m.row < arpRow {
			if err := m.player.Trigger(drumsmith.Instrument(m.row)); err != nil {
				m.setStatus(drumsmith.Message(err), true)
			}
		}

	case "p":
		if m.player.Playing() {
			m.player.Stop()
		} else {
			m.player.Start()
		}
	case "r":
		m.player.Reset()
		m.playhead = -1

	case "+", "=":
		m.edit(func(p *drumsmith.Pattern) { p.Tempo = min(p.Tempo+1, pattern.MaxTempo) })
	case "-", "_":
		m.edit(func(p *drumsmith.Pattern) { p.Tempo = max(p.Tempo-1, pattern.MinTempo) })
	case "]":
		m.edit(func(p *drumsmith.Pattern) { p.Swing = min(p.Swing+5, pattern.MaxSwing) })
	case "[":
		m.edit(func(p *drumsmith.Pattern) { p.Swing = max(p.Swing-5, pattern.MinSwing) })

	case "1", "2", "3", "4", "5", "6", "7", "8":
		slot := int(msg.String()[0] - '1')
		if err := m.player.Load(m.proj.Bank, slot); err != nil {
			m.setStatus(drumsmith.Message(err), true)
		} else {
			m.slot = slot
			m.setStatus(fmt.Sprintf("loaded slot %d", slot+1), false)
		}
	case "s":
		saved, err := m.player.Save(m.proj.Bank, m.slot)
		if err != nil {
			m.setStatus(drumsmith.Message(err), true)
		} else {
			m.setStatus(fmt.Sprintf("saved to slot %d", saved.Slot), false)
		}
	case "w":
		if err := project.Save(m.path, m.proj.Bank, m.proj.Arrangement); err != nil {
			m.setStatus(err.Error(), true)
		} else {
			m.setStatus("wrote "+m.path, false)
		}
	case "a":
		if err := m.playArrangement(); err != nil {
			m.arrange = false
			m.setStatus(drumsmith.Message(err), true)
		}
	}
	return m, nil
}

func (m *model) edit(f func(*drumsmith.Pattern)) {
	if err := m.player.EditPattern(f); err != nil {
		m.setStatus(drumsmith.Message(err), true)
	}
}

func (m *model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	if m.arrange {
		m.viewArrange(&b)
	} else {
		m.viewEdit(&b)
	}
	if m.status != "" {
		style := statusStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}
	return b.String()
}

func (m model) viewEdit(b *strings.Builder) {
	p := m.player.Pattern()
	state := "STOP"
	if m.player.Playing() {
		state = "PLAY"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("drumsmith  slot %d  %s  %3.0fbpm  swing %3.0f%%  oct %+d  %s",
		m.slot+1, state, p.Tempo, p.Swing, p.Arp.OctaveShift, p.Arp.Waveform)))
	b.WriteString("\n\n")

	for _, inst := range pattern.Instruments() {
		b.WriteString(fmt.Sprintf("%-6s ", inst))
		for step := 0; step < drumsmith.Steps; step++ {
			cell := dimStyle.Render(" . ")
			if p.Sequence.Active(inst, step) {
				cell = activeStyle.Render(" x ")
			}
			b.WriteString(m.decorate(cell, int(inst), step))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("%-6s ", "arp"))
	for step := 0; step < drumsmith.Steps; step++ {
		n := p.Arp.Pattern[step]
		cell := dimStyle.Render(" . ")
		if !n.IsRest() {
			cell = activeStyle.Render(fmt.Sprintf("%-3s", n))
		}
		b.WriteString(m.decorate(cell, arpRow, step))
	}
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("hjkl:move  space:toggle  ,/.:note  o/O:octave  x:audition  p:play  r:reset"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("+/-:tempo  [/]:swing  1-8:load  s:save  w:write  a:arrangement  q:quit"))
	b.WriteString("\n")
}

func (m model) decorate(cell string, row, step int) string {
	switch {
	case row == m.row && step == m.col:
		return cursorStyle.Render(cell)
	case step == m.playhead && m.player.Playing():
		return playheadStyle.Render(cell)
	}
	return cell
}

func (m model) viewArrange(b *strings.Builder) {
	_, _, playing := m.player.ArrangementPosition()
	state := "PAUSE"
	if playing {
		state = "PLAY"
	}
	patterns := m.proj.Arrangement.Patterns()
	b.WriteString(titleStyle.Render(fmt.Sprintf("drumsmith  arrangement  %s  %d patterns", state, len(patterns))))
	b.WriteString("\n\n")
	for i, p := range patterns {
		line := fmt.Sprintf("%2d  %-12s %3.0fbpm  swing %3.0f%%  ", i+1, p.Name, p.Tempo, p.Swing)
		if i == m.arrPattern && m.playhead >= 0 {
			bar := strings.Repeat("=", m.arrStep+1) + strings.Repeat(" ", drumsmith.Steps-m.arrStep-1)
			b.WriteString(activeStyle.Render(line + "[" + bar + "]"))
		} else {
			b.WriteString(dimStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("space:pause/resume  r:rewind  e:edit  q:quit"))
	b.WriteString("\n")
}
