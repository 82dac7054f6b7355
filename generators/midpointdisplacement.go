package generators

import (
	"math/rand/v2"

	"github.com/ob6160/TerrainErosion/utils"
)

// TerrainGenerator produces a raw square heightmap in one go.
type TerrainGenerator interface {
	Source
	Generate(spread, reduce float64)
	Heightmap() []float64
	Dimensions() (int, int)
}

type MidpointDisplacement struct {
	size      int
	seed      uint64
	heightmap []float64
	assigned  []bool
	rng       *rand.Rand
}

func NewMidPointDisplacement(size int, seed uint64) *MidpointDisplacement {
	return &MidpointDisplacement{
		size:      size,
		seed:      seed,
		heightmap: make([]float64, size*size),
		assigned:  make([]bool, size*size),
	}
}

func (m *MidpointDisplacement) Heightmap() []float64 {
	return m.heightmap
}

func (m *MidpointDisplacement) Dimensions() (int, int) {
	return m.size, m.size
}

func (m *MidpointDisplacement) Sample(x, y int) float64 {
	return m.heightmap[utils.ToIndex(x, y, m.size)]
}

// Generate fills the heightmap. The same seed, spread and reduce always give
// the same field.
func (m *MidpointDisplacement) Generate(spread, reduce float64) {
	m.rng = rand.New(rand.NewPCG(m.seed, 0))
	for i := range m.heightmap {
		m.heightmap[i] = 0
		m.assigned[i] = false
	}
	if m.size == 0 {
		return
	}
	var last = m.size - 1
	m.set(utils.Point{X: 0, Y: 0}, m.rng.Float64())
	m.set(utils.Point{X: last, Y: 0}, m.rng.Float64())
	m.set(utils.Point{X: 0, Y: last}, m.rng.Float64())
	m.set(utils.Point{X: last, Y: last}, m.rng.Float64())
	m.displace(0, 0, last, last, spread, reduce)
}

func (m *MidpointDisplacement) get(p utils.Point) float64 {
	return m.heightmap[p.ToIndex(m.size)]
}

func (m *MidpointDisplacement) set(p utils.Point, value float64) {
	var i = p.ToIndex(m.size)
	m.heightmap[i] = value
	m.assigned[i] = true
}

func (m *MidpointDisplacement) setOnce(p utils.Point, avg, spread float64) {
	if m.assigned[p.ToIndex(m.size)] {
		return
	}
	m.set(p, utils.Jitter(avg, spread, m.rng.Float64))
}

func (m *MidpointDisplacement) displace(x0, y0, x1, y1 int, spread, reduce float64) {
	if x1-x0 < 2 && y1-y0 < 2 {
		return
	}
	var mx = utils.Midpoint(x0, x1)
	var my = utils.Midpoint(y0, y1)

	var tl = m.get(utils.Point{X: x0, Y: y0})
	var tr = m.get(utils.Point{X: x1, Y: y0})
	var bl = m.get(utils.Point{X: x0, Y: y1})
	var br = m.get(utils.Point{X: x1, Y: y1})

	var top = utils.Point{X: mx, Y: y0}
	var bottom = utils.Point{X: mx, Y: y1}
	var left = utils.Point{X: x0, Y: my}
	var right = utils.Point{X: x1, Y: my}
	var centre = utils.Point{X: mx, Y: my}

	m.setOnce(top, utils.Average(tl, tr), spread)
	m.setOnce(bottom, utils.Average(bl, br), spread)
	m.setOnce(left, utils.Average(tl, bl), spread)
	m.setOnce(right, utils.Average(tr, br), spread)
	m.setOnce(centre, utils.Average(m.get(top), m.get(bottom), m.get(left), m.get(right)), spread)

	var next = spread * reduce
	m.displace(x0, y0, mx, my, next, reduce)
	m.displace(mx, y0, x1, my, next, reduce)
	m.displace(x0, my, mx, y1, next, reduce)
	m.displace(mx, my, x1, y1, next, reduce)
}
