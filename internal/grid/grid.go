// Package grid buckets continuous pixel coordinates into coarse cells so
// spatial aggregation stays stable under sub-pixel jitter.
package grid

// DefaultCellSize is the edge length in pixels of a grid cell.
const DefaultCellSize = 10

// Cell identifies one bucket by the coordinates of its top-left corner.
// Two cells compare equal iff they cover the same tile.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bucketer maps pixel coordinates onto a fixed-size grid.
type Bucketer struct {
	cellSize int
}

// NewBucketer creates a bucketer with the given cell size.
// Sizes below 1 fall back to DefaultCellSize.
func NewBucketer(cellSize int) Bucketer {
	if cellSize < 1 {
		cellSize = DefaultCellSize
	}
	return Bucketer{cellSize: cellSize}
}

// CellSize returns the configured cell edge length.
func (b Bucketer) CellSize() int {
	return b.cellSize
}

// Bucket maps (x, y) to its containing cell. The mapping floors toward
// negative infinity, so coordinates left of or above the origin still land
// in a well-defined tile.
func (b Bucketer) Bucket(x, y int) Cell {
	return Cell{
		X: floorDiv(x, b.cellSize) * b.cellSize,
		Y: floorDiv(y, b.cellSize) * b.cellSize,
	}
}

func floorDiv(a, size int) int {
	q := a / size
	if a%size != 0 && (a < 0) != (size < 0) {
		q--
	}
	return q
}
