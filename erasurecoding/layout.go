package erasurecoding

import (
	"fmt"

	"github.com/colorfulnotion/raid6/raiderrors"
)

// Layout deals a payload round-robin across data disks in Unit-byte cells.
// With Unit = 1 consecutive payload bytes land on consecutive disks.
type Layout struct {
	DataDisks int
	Unit      int
}

func NewLayout(dataDisks, unit int) (Layout, error) {
	if dataDisks < 1 || unit < 1 {
		return Layout{}, fmt.Errorf("layout %d data disks, unit %d: %w", dataDisks, unit, raiderrors.ErrInvalidGeometry)
	}
	return Layout{DataDisks: dataDisks, Unit: unit}, nil
}

// BlockSize is the per-disk block length needed to hold size payload bytes.
func (l Layout) BlockSize(size int) int {
	cells := (size + l.Unit - 1) / l.Unit
	rows := (cells + l.DataDisks - 1) / l.DataDisks
	return rows * l.Unit
}

// Split returns DataDisks zero-padded blocks holding payload.
func (l Layout) Split(payload []byte) [][]byte {
	bs := l.BlockSize(len(payload))
	blocks := make([][]byte, l.DataDisks)
	for i := range blocks {
		blocks[i] = make([]byte, bs)
	}
	for cell := 0; cell*l.Unit < len(payload); cell++ {
		start := cell * l.Unit
		end := min(start+l.Unit, len(payload))
		row := cell / l.DataDisks
		copy(blocks[cell%l.DataDisks][row*l.Unit:], payload[start:end])
	}
	return blocks
}

// Join reassembles the first size bytes of the payload from data blocks.
func (l Layout) Join(blocks [][]byte, size int) ([]byte, error) {
	if len(blocks) != l.DataDisks {
		return nil, fmt.Errorf("%d blocks for %d data disks: %w", len(blocks), l.DataDisks, raiderrors.ErrShapeMismatch)
	}
	bs := l.BlockSize(size)
	for i, b := range blocks {
		if len(b) < bs {
			return nil, fmt.Errorf("block %d has %d bytes, need %d: %w", i, len(b), bs, raiderrors.ErrShapeMismatch)
		}
	}
	payload := make([]byte, size)
	for cell := 0; cell*l.Unit < size; cell++ {
		start := cell * l.Unit
		end := min(start+l.Unit, size)
		row := cell / l.DataDisks
		off := row * l.Unit
		copy(payload[start:end], blocks[cell%l.DataDisks][off:off+end-start])
	}
	return payload, nil
}
