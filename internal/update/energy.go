package update

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/views"
)

func (m Model) handleEnergyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "l":
		m.EnergyFilter = model.EnergyLow
	case "m":
		m.EnergyFilter = model.EnergyMedium
	case "h":
		m.EnergyFilter = model.EnergyHigh
	default:
		return m, nil
	}
	return m, m.reload()
}

func (m Model) renderEnergyView() string {
	now := m.now()
	return views.RenderEnergyPanel(views.EnergyPanelData{
		Hour:        now.Hour(),
		Bucket:      string(m.Bucket),
		Suggestions: toRows(m.Suggestions, now),
		Selected:    string(m.EnergyFilter),
		ByLevel:     toRows(m.ByLevel, now),
	})
}
