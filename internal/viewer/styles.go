package viewer

import (
	"github.com/charmbracelet/lipgloss"

	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
)

// Styles contains the style definitions of the viewer.
type Styles struct {
	Title     lipgloss.Style
	Dim       lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	Reference lipgloss.Style
	Active    lipgloss.Style
	Box       lipgloss.Style
	PinnedBox lipgloss.Style
	BoxTitle  lipgloss.Style
	AttrKey   lipgloss.Style
}

// typeColors gives the well-known entity types their own reference colour.
var typeColors = map[domentity.Type]lipgloss.Color{
	domentity.TypeNPC:       lipgloss.Color("214"),
	domentity.TypeCharacter: lipgloss.Color("78"),
	domentity.TypeLocation:  lipgloss.Color("33"),
	domentity.TypeQuest:     lipgloss.Color("170"),
	domentity.TypeFaction:   lipgloss.Color("203"),
	domentity.TypeSession:   lipgloss.Color("51"),
	domentity.TypeEncounter: lipgloss.Color("226"),
}

// NewStyles creates the default styles.
func NewStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Dim:       lipgloss.NewStyle().Faint(true),
		Status:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		Reference: lipgloss.NewStyle().Underline(true),
		Active:    lipgloss.NewStyle().Underline(true).Reverse(true),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")),
		PinnedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")),
		BoxTitle: lipgloss.NewStyle().Bold(true),
		AttrKey:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

func (s Styles) reference(entityType string, active bool) lipgloss.Style {
	st := s.Reference
	if active {
		st = s.Active
	}
	if c, ok := typeColors[domentity.Type(entityType)]; ok {
		st = st.Foreground(c)
	}
	return st
}
