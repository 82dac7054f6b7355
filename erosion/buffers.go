package erosion

import (
	"fmt"
	"strings"
)

// Mode selects how stages see each other's writes.
type Mode int

const (
	// DoubleBuffer: every stage reads the front grid and writes whole cells
	// into the back grid, then the two swap.
	DoubleBuffer Mode = iota
	// InPlace: a single grid is updated directly. Stages that read a field at
	// neighbours which they also write stage that field into a scratch slice.
	InPlace
)

func (m Mode) String() string {
	if m == InPlace {
		return "in-place"
	}
	return "double-buffer"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "double-buffer", "doublebuffer", "pingpong", "ping-pong":
		return DoubleBuffer, nil
	case "in-place", "inplace":
		return InPlace, nil
	}
	return DoubleBuffer, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", s)}
}

// Buffers owns the grids of a run. In InPlace mode there is no back grid.
// The first grid is the one the run was started with; Commit makes it hold
// the latest state again.
type Buffers struct {
	grids   [2]*Grid
	current int
}

func NewBuffers(g *Grid, mode Mode) *Buffers {
	var b = &Buffers{}
	b.grids[0] = g
	if mode == DoubleBuffer {
		b.grids[1] = g.Clone()
	}
	return b
}

func (b *Buffers) Front() *Grid {
	return b.grids[b.current]
}

func (b *Buffers) Back() *Grid {
	return b.grids[1-b.current]
}

func (b *Buffers) Swap() {
	if b.grids[1] == nil {
		return
	}
	b.current = 1 - b.current
}

// Commit copies the front grid into the first grid and makes that the front.
func (b *Buffers) Commit() {
	if b.current == 0 {
		return
	}
	copy(b.grids[0].Cells, b.grids[1].Cells)
	b.current = 0
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
