// Package tooltip tracks the single live entity preview and where it is anchored.
package tooltip

// Default horizontal budget, in pixels, around a 300px preview surface.
const (
	DefaultOffset  = 10
	DefaultPadding = 150
)

// Point is a screen coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Viewport is the visible area the preview must stay inside.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resolver clamps a pointer position so a preview anchored there stays on screen horizontally.
// The zero value clamps to the viewport edges.
type Resolver struct {
	Offset  int
	Padding int
}

// DefaultResolver returns the pixel-based resolver.
func DefaultResolver() Resolver {
	return Resolver{Offset: DefaultOffset, Padding: DefaultPadding}
}

// Resolve returns the anchor point. x is clamped into
// [Offset+Padding, width-Offset-Padding]; y passes through.
// Viewports narrower than the budget anchor at their centre.
func (r Resolver) Resolve(pointer Point, vp Viewport) Point {
	margin := r.Offset + r.Padding
	lo, hi := margin, vp.Width-margin
	if hi < lo {
		return Point{X: vp.Width / 2, Y: pointer.Y}
	}

	x := pointer.X
	switch {
	case x < lo:
		x = lo
	case x > hi:
		x = hi
	}
	return Point{X: x, Y: pointer.Y}
}
