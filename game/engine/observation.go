package engine

// Observation is an image-shaped byte buffer of
// (grid_size*cell_size) x (grid_size*cell_size) x 3.
//
// Pix is always zero-filled: frames are drawn by renderers and are not
// copied back into the observation. An Environment allocates Pix once and
// returns the same buffer from every Reset and Step, so callers must treat
// it as read-only.
type Observation struct {
	Height   int     `json:"height"`
	Width    int     `json:"width"`
	Channels int     `json:"channels"`
	Pix      []uint8 `json:"-"`
}

// NewObservation allocates a zero observation for the given grid
func NewObservation(gridSize, cellSize int) Observation {
	side := gridSize * cellSize
	return Observation{
		Height:   side,
		Width:    side,
		Channels: ObservationChannels,
		Pix:      make([]uint8, side*side*ObservationChannels),
	}
}

// Shape returns (height, width, channels)
func (o Observation) Shape() [3]int {
	return [3]int{o.Height, o.Width, o.Channels}
}

// At returns the channel value at row y, column x
func (o Observation) At(y, x, c int) uint8 {
	return o.Pix[(y*o.Width+x)*o.Channels+c]
}
