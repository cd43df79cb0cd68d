package galois

import (
	"fmt"

	"github.com/colorfulnotion/raid6/raiderrors"
)

func sameLength(in, out []byte) error {
	if len(in) != len(out) {
		return fmt.Errorf("in=%d out=%d: %w", len(in), len(out), raiderrors.ErrShapeMismatch)
	}
	return nil
}

// MulSlice sets out[i] = c*in[i].
func (f *Field) MulSlice(c byte, in, out []byte) error {
	if err := sameLength(in, out); err != nil {
		return err
	}
	row := &f.mul[c]
	for i, v := range in {
		out[i] = row[v]
	}
	return nil
}

// MulAddSlice sets out[i] ^= c*in[i].
func (f *Field) MulAddSlice(c byte, in, out []byte) error {
	if err := sameLength(in, out); err != nil {
		return err
	}
	if c == 0 {
		return nil
	}
	row := &f.mul[c]
	for i, v := range in {
		out[i] ^= row[v]
	}
	return nil
}

// XorSlice sets out[i] ^= in[i].
func XorSlice(in, out []byte) error {
	if err := sameLength(in, out); err != nil {
		return err
	}
	for i, v := range in {
		out[i] ^= v
	}
	return nil
}
