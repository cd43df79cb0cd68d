package erasurecoding

import (
	"fmt"
	"sort"

	"github.com/colorfulnotion/raid6/galois"
	"github.com/colorfulnotion/raid6/raiderrors"
)

// missingSet validates and sorts the indexes of unavailable disks.
func missingSet(disks int, missing []int) ([]int, error) {
	out := make([]int, 0, len(missing))
	for _, m := range missing {
		if m < 0 || m >= disks {
			return nil, fmt.Errorf("disk %d out of range [0,%d): %w", m, disks, raiderrors.ErrShapeMismatch)
		}
		if !contains(out, m) {
			out = append(out, m)
		}
	}
	if len(out) > 2 {
		return nil, fmt.Errorf("%d of %d disks unavailable %v: %w", len(out), disks, out, raiderrors.ErrUnrecoverable)
	}
	sort.Ints(out)
	return out, nil
}

// rebuild recomputes shards[missing] over offsets [lo, hi). The missing
// shards must already be allocated; every other shard must be intact.
func rebuild(f *galois.Field, shards [][]byte, missing []int, lo, hi int) error {
	d := len(shards) - 2
	pDisk, qDisk := d, d+1
	data := shards[:d]
	p, q := shards[pDisk], shards[qDisk]

	switch len(missing) {
	case 0:
		return nil

	case 1:
		k := missing[0]
		switch k {
		case pDisk:
			xorData(data, nil, lo, hi, p[lo:hi])
		case qDisk:
			weighData(f, data, nil, lo, hi, q[lo:hi])
		default:
			// single data loss degenerates to plain XOR parity
			out := shards[k][lo:hi]
			xorData(data, missing, lo, hi, out)
			galois.XorSlice(p[lo:hi], out)
		}
		return nil
	}

	x, y := missing[0], missing[1]
	switch {
	case x == pDisk && y == qDisk:
		xorData(data, nil, lo, hi, p[lo:hi])
		weighData(f, data, nil, lo, hi, q[lo:hi])

	case y == qDisk:
		out := shards[x][lo:hi]
		xorData(data, missing, lo, hi, out)
		galois.XorSlice(p[lo:hi], out)
		weighData(f, data, nil, lo, hi, q[lo:hi])

	case y == pDisk:
		// Q + Qx = g^x * Dx
		out := shards[x][lo:hi]
		weighData(f, data, missing, lo, hi, out)
		galois.XorSlice(q[lo:hi], out)
		f.MulSlice(f.Exp(-x), out, out)
		xorData(data, nil, lo, hi, p[lo:hi])

	default:
		// P' = Dx + Dy, Q' = g^x*Dx + g^y*Dy, so Dx = (g^y*P' + Q') / (g^x + g^y).
		pxy := make([]byte, hi-lo)
		qxy := make([]byte, hi-lo)
		xorData(data, missing, lo, hi, pxy)
		galois.XorSlice(p[lo:hi], pxy)
		weighData(f, data, missing, lo, hi, qxy)
		galois.XorSlice(q[lo:hi], qxy)

		denom, err := f.Inv(galois.Add(f.Exp(x), f.Exp(y)))
		if err != nil {
			return fmt.Errorf("disks %d and %d share a coefficient: %w", x, y, err)
		}
		dx, dy := shards[x][lo:hi], shards[y][lo:hi]
		f.MulSlice(f.Exp(y), pxy, dx)
		galois.XorSlice(qxy, dx)
		f.MulSlice(denom, dx, dx)

		copy(dy, pxy)
		galois.XorSlice(dx, dy)
	}
	return nil
}

// RecoverStripe reconstructs the bytes of one stripe (one byte per disk)
// whose indexes are listed in missing. The bytes at missing positions in
// stripe are ignored. The returned stripe is a new slice.
func RecoverStripe(f *galois.Field, stripe []byte, missing []int) ([]byte, error) {
	if err := CheckGeometry(len(stripe)); err != nil {
		return nil, err
	}
	lost, err := missingSet(len(stripe), missing)
	if err != nil {
		return nil, err
	}
	shards := make([][]byte, len(stripe))
	for i, b := range stripe {
		shards[i] = []byte{b}
	}
	if err := rebuild(f, shards, lost, 0, 1); err != nil {
		return nil, err
	}
	out := make([]byte, len(stripe))
	for i, s := range shards {
		out[i] = s[0]
	}
	return out, nil
}
