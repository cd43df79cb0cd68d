package erasurecoding

import (
	"fmt"

	"github.com/colorfulnotion/raid6/galois"
	"github.com/colorfulnotion/raid6/raiderrors"
)

const (
	// MinDisks is the smallest array holding one data disk plus P and Q.
	MinDisks = 3
	// MaxDisks keeps every data disk on a distinct Q coefficient g^i.
	MaxDisks = galois.Order + 2
)

// CheckGeometry validates a disk count. Disks 0..n-3 hold data, disk n-2
// holds P and disk n-1 holds Q.
func CheckGeometry(disks int) error {
	if disks < MinDisks || disks > MaxDisks {
		return fmt.Errorf("%d disks (want %d..%d): %w", disks, MinDisks, MaxDisks, raiderrors.ErrInvalidGeometry)
	}
	return nil
}

// blockSize returns the common length of blocks, which must be non-empty.
func blockSize(blocks [][]byte) (int, error) {
	if len(blocks) == 0 {
		return 0, fmt.Errorf("no data blocks: %w", raiderrors.ErrShapeMismatch)
	}
	if len(blocks) > galois.Order {
		return 0, fmt.Errorf("%d data blocks exceed %d coefficients: %w", len(blocks), galois.Order, raiderrors.ErrShapeMismatch)
	}
	size := len(blocks[0])
	for i, b := range blocks {
		if b == nil {
			return 0, fmt.Errorf("data block %d missing: %w", i, raiderrors.ErrShapeMismatch)
		}
		if len(b) != size {
			return 0, fmt.Errorf("data block %d has %d bytes, block 0 has %d: %w", i, len(b), size, raiderrors.ErrShapeMismatch)
		}
	}
	return size, nil
}

// xorData sets out = XOR of data[i][lo:hi] for every data block not in skip.
func xorData(data [][]byte, skip []int, lo, hi int, out []byte) {
	clear(out)
	for i, b := range data {
		if contains(skip, i) {
			continue
		}
		galois.XorSlice(b[lo:hi], out)
	}
}

// weighData sets out = sum of g^i * data[i][lo:hi] for every data block not in skip.
func weighData(f *galois.Field, data [][]byte, skip []int, lo, hi int, out []byte) {
	clear(out)
	for i, b := range data {
		if contains(skip, i) {
			continue
		}
		f.MulAddSlice(f.Exp(i), b[lo:hi], out)
	}
}

// GenerateP returns the XOR of all data blocks.
func GenerateP(data [][]byte) ([]byte, error) {
	size, err := blockSize(data)
	if err != nil {
		return nil, err
	}
	p := make([]byte, size)
	xorData(data, nil, 0, size, p)
	return p, nil
}

// GenerateQ returns, for each offset, the XOR over data disk i of g^i*data[i].
func GenerateQ(f *galois.Field, data [][]byte) ([]byte, error) {
	size, err := blockSize(data)
	if err != nil {
		return nil, err
	}
	q := make([]byte, size)
	weighData(f, data, nil, 0, size, q)
	return q, nil
}

// CheckP recomputes P from data and compares it with p.
func CheckP(data [][]byte, p []byte) error {
	expected, err := GenerateP(data)
	if err != nil {
		return err
	}
	return compareParity("P", expected, p)
}

// CheckQ recomputes Q from data and compares it with q.
func CheckQ(f *galois.Field, data [][]byte, q []byte) error {
	expected, err := GenerateQ(f, data)
	if err != nil {
		return err
	}
	return compareParity("Q", expected, q)
}

func compareParity(parity string, expected, actual []byte) error {
	if len(expected) != len(actual) {
		return fmt.Errorf("%s block has %d bytes, data blocks have %d: %w",
			parity, len(actual), len(expected), raiderrors.ErrShapeMismatch)
	}
	var mismatch *raiderrors.ParityMismatchError
	for i := range expected {
		if expected[i] == actual[i] {
			continue
		}
		if mismatch == nil {
			mismatch = &raiderrors.ParityMismatchError{Parity: parity, Offset: i, Expected: expected[i], Actual: actual[i]}
		}
		mismatch.Count++
	}
	if mismatch != nil {
		return mismatch
	}
	return nil
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
