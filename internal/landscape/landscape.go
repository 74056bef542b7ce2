package landscape

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/katalvlaran/lvlath/gridgraph"
)

// Neighborhood selects which cells are considered adjacent when labelling
// patches.
type Neighborhood int

const (
	// Neighborhood8 joins cells that share an edge or a corner.
	Neighborhood8 Neighborhood = 8
	// Neighborhood4 joins cells that share an edge.
	Neighborhood4 Neighborhood = 4
)

// ParseNeighborhood accepts "4" or "8".
func ParseNeighborhood(s string) (Neighborhood, error) {
	switch s {
	case "8", "":
		return Neighborhood8, nil
	case "4":
		return Neighborhood4, nil
	}
	return 0, fmt.Errorf("neighborhood rule must be \"4\" or \"8\", got %q", s)
}

func (n Neighborhood) conn() gridgraph.Connectivity {
	if n == Neighborhood4 {
		return gridgraph.Conn4
	}
	return gridgraph.Conn8
}

var (
	// ErrEmptyLandscape is returned for a grid without rows or columns.
	ErrEmptyLandscape = errors.New("landscape: grid must have at least one row and one column")
	// ErrNonRectangular is returned when grid rows differ in length.
	ErrNonRectangular = errors.New("landscape: all rows must have the same length")
)

// Landscape is a classified raster: one class value per cell, laid out
// row-major as Values[y][x].
type Landscape struct {
	Values     [][]int
	CellWidth  float64 // metres
	CellHeight float64 // metres

	Nodata    int
	HasNodata bool

	Neighborhood Neighborhood
	// CountBoundary makes total_edge and edge_density include edges on the
	// landscape boundary and against nodata cells.
	CountBoundary bool

	mu      sync.Mutex
	classes map[int]*classStats
}

// Patch is one connected region of a single class.
type Patch struct {
	Cells     int
	Area      float64 // square metres
	Perimeter float64 // metres
}

type classStats struct {
	patches      []Patch
	area         float64
	innerEdge    float64
	boundaryEdge float64
}

// New validates the grid and returns a landscape with an 8-cell
// neighbourhood and no nodata value.
func New(values [][]int, cellWidth, cellHeight float64) (*Landscape, error) {
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, ErrEmptyLandscape
	}
	w := len(values[0])
	for _, row := range values {
		if len(row) != w {
			return nil, ErrNonRectangular
		}
	}
	if cellWidth <= 0 || cellHeight <= 0 {
		return nil, fmt.Errorf("landscape: cell size must be positive, got %gx%g", cellWidth, cellHeight)
	}
	return &Landscape{
		Values:       values,
		CellWidth:    cellWidth,
		CellHeight:   cellHeight,
		Neighborhood: Neighborhood8,
	}, nil
}

// SetNodata marks v as the nodata value.
func (l *Landscape) SetNodata(v int) {
	l.Nodata = v
	l.HasNodata = true
}

func (l *Landscape) Width() int  { return len(l.Values[0]) }
func (l *Landscape) Height() int { return len(l.Values) }

// CellArea is the area of one cell in square metres.
func (l *Landscape) CellArea() float64 { return l.CellWidth * l.CellHeight }

func (l *Landscape) isNodata(v int) bool { return l.HasNodata && v == l.Nodata }

// Area is the landscape area in square metres, excluding nodata cells.
func (l *Landscape) Area() float64 {
	n := 0
	for _, row := range l.Values {
		for _, v := range row {
			if !l.isNodata(v) {
				n++
			}
		}
	}
	return float64(n) * l.CellArea()
}

// Classes lists the distinct non-nodata class values in ascending order.
func (l *Landscape) Classes() []int {
	seen := make(map[int]bool)
	for _, row := range l.Values {
		for _, v := range row {
			if !l.isNodata(v) {
				seen[v] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Patches returns the patches of class, in row-major order of their first
// cell.
func (l *Landscape) Patches(class int) ([]Patch, error) {
	st, err := l.stats(class)
	if err != nil {
		return nil, err
	}
	return append([]Patch(nil), st.patches...), nil
}

// TotalEdge is the length in metres of the edges between class cells and
// cells of other classes. With countBoundary it also includes edges along
// the landscape boundary and against nodata.
func (l *Landscape) TotalEdge(class int, countBoundary bool) (float64, error) {
	st, err := l.stats(class)
	if err != nil {
		return 0, err
	}
	if countBoundary {
		return st.innerEdge + st.boundaryEdge, nil
	}
	return st.innerEdge, nil
}

func (l *Landscape) stats(class int) (*classStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if st, ok := l.classes[class]; ok {
		return st, nil
	}
	if l.isNodata(class) {
		return nil, fmt.Errorf("landscape: class %d is the nodata value", class)
	}
	st, err := l.computeStats(class)
	if err != nil {
		return nil, err
	}
	if l.classes == nil {
		l.classes = make(map[int]*classStats)
	}
	l.classes[class] = st
	return st, nil
}

// edgeOffsets are the four edge-sharing neighbours; horizontal steps cross
// an edge of length CellHeight, vertical steps one of length CellWidth.
var edgeOffsets = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

func (l *Landscape) edgeLength(dx int) float64 {
	if dx != 0 {
		return l.CellHeight
	}
	return l.CellWidth
}

func (l *Landscape) computeStats(class int) (*classStats, error) {
	w, h := l.Width(), l.Height()
	mask := make([][]int, h)
	for y, row := range l.Values {
		mask[y] = make([]int, w)
		for x, v := range row {
			if v == class {
				mask[y][x] = 1
			}
		}
	}

	gg, err := gridgraph.NewGridGraph(mask, gridgraph.GridOptions{LandThreshold: 1, Conn: l.Neighborhood.conn()})
	if err != nil {
		return nil, fmt.Errorf("landscape: build patch graph: %w", err)
	}
	comps := gg.ConnectedComponents()

	label := make([]int, w*h)
	for i := range label {
		label[i] = -1
	}
	for k, comp := range comps {
		for _, idx := range comp {
			label[idx] = k
		}
	}

	st := &classStats{patches: make([]Patch, len(comps))}
	cellArea := l.CellArea()
	for k, comp := range comps {
		p := Patch{Cells: len(comp), Area: float64(len(comp)) * cellArea}
		for _, idx := range comp {
			x, y := gg.Coordinate(idx)
			for _, d := range edgeOffsets {
				nx, ny := x+d[0], y+d[1]
				if !gg.InBounds(nx, ny) || label[ny*w+nx] != k {
					p.Perimeter += l.edgeLength(d[0])
				}
				switch {
				case !gg.InBounds(nx, ny) || l.isNodata(l.Values[ny][nx]):
					st.boundaryEdge += l.edgeLength(d[0])
				case l.Values[ny][nx] != class:
					st.innerEdge += l.edgeLength(d[0])
				}
			}
		}
		st.patches[k] = p
		st.area += p.Area
	}
	return st, nil
}
