package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	Note  rune // | sounding note cell
	Empty rune // blank cell
	C     rune // · octave guide on C rows
}

func New(palette *Palette) *Theme {
	if palette == nil || len(palette.Colors) == 0 {
		palette = Plasma()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Note:  '|',
			Empty: ' ',
			C:     '·',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleMuted   = 0.2
	RoleFG      = 0.4
	RoleAccent  = 0.5
	RoleActive  = 0.7
	RoleWarning = 0.8
)

// Channels is the number of MIDI channels.
const Channels = 16

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

// ChannelRGB spreads the 16 channels across the palette, skipping its
// darkest end so notes stay visible on a dark terminal.
func (t *Theme) ChannelRGB(channel uint8) RGB {
	ch := float64(channel % Channels)
	return t.Palette.Lookup(0.25 + 0.75*ch/(Channels-1))
}

// Channel returns the lipgloss color for a MIDI channel (0-15).
func (t *Theme) Channel(channel uint8) lipgloss.Color {
	return rgbToLipgloss(t.ChannelRGB(channel))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(c.Hex())
}
