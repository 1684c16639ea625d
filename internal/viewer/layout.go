package viewer

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/kailas-cloud/lorelink/internal/domain/mention"
)

// hotspot is the screen cell range of one reference, in text coordinates.
type hotspot struct {
	Row   int
	Col   int
	Width int
	Ref   mention.Reference
}

// layout is annotated text wrapped to a width, references replaced by their styled labels.
type layout struct {
	lines    []string
	hotspots []hotspot
}

type unit struct {
	text  string
	glued bool
	ref   *mention.Reference
}

// layoutText wraps text greedily at width (no wrapping if width <= 0).
// A reference label is never split across rows.
func layoutText(text string, width int, st Styles, activeID string) layout {
	if width <= 0 {
		width = int(^uint(0) >> 1)
	}
	var out layout
	for _, line := range strings.Split(text, "\n") {
		units := lineUnits(line)

		var row strings.Builder
		col := 0
		for _, u := range units {
			w := lipgloss.Width(u.text)
			sep := 0
			if col > 0 && !u.glued {
				sep = 1
			}
			if col > 0 && col+sep+w > width {
				out.lines = append(out.lines, row.String())
				row.Reset()
				col, sep = 0, 0
			}
			if sep == 1 {
				row.WriteByte(' ')
				col++
			}
			if u.ref != nil {
				out.hotspots = append(out.hotspots, hotspot{Row: len(out.lines), Col: col, Width: w, Ref: *u.ref})
				row.WriteString(st.reference(u.ref.EntityType, u.ref.EntityID == activeID).Render(u.text))
			} else {
				row.WriteString(u.text)
			}
			col += w
		}
		out.lines = append(out.lines, row.String())
	}
	return out
}

// hit returns the index of the hotspot covering (row, col), or -1.
func (l layout) hit(row, col int) int {
	for i, h := range l.hotspots {
		if h.Row == row && col >= h.Col && col < h.Col+h.Width {
			return i
		}
	}
	return -1
}

type unitBuilder struct {
	units []unit
	word  strings.Builder
	space bool
}

func (b *unitBuilder) emit(u unit) {
	u.glued = !b.space && len(b.units) > 0
	b.units = append(b.units, u)
	b.space = false
}

func (b *unitBuilder) flush() {
	if b.word.Len() > 0 {
		b.emit(unit{text: b.word.String()})
		b.word.Reset()
	}
}

func (b *unitBuilder) plain(s string) {
	for _, r := range s {
		if unicode.IsSpace(r) {
			b.flush()
			b.space = true
			continue
		}
		b.word.WriteRune(r)
	}
}

// lineUnits splits one source line into words and whole references.
func lineUnits(line string) []unit {
	b := &unitBuilder{}
	pos := 0
	for _, ref := range mention.References(line) {
		b.plain(line[pos:ref.Start])
		b.flush()
		r := ref
		b.emit(unit{text: r.Label, ref: &r})
		pos = ref.End
	}
	b.plain(line[pos:])
	b.flush()
	return b.units
}
