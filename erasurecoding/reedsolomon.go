package erasurecoding

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/raid6/raiderrors"
	"github.com/klauspost/reedsolomon"
)

// RSCodec is a reference (N-2, 2) Reed-Solomon codec over the same shard
// layout as Codec. Its parity shards are not P and Q, but the data shards it
// reconstructs must match. See https://pkg.go.dev/github.com/klauspost/reedsolomon#New
type RSCodec struct {
	enc   reedsolomon.Encoder
	disks int
}

func NewRSCodec(disks int, opts ...reedsolomon.Option) (*RSCodec, error) {
	if err := CheckGeometry(disks); err != nil {
		return nil, err
	}
	enc, err := reedsolomon.New(disks-2, 2, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %v", err)
	}
	return &RSCodec{enc: enc, disks: disks}, nil
}

// Encode fills the two parity shards.
func (r *RSCodec) Encode(shards [][]byte) error {
	if len(shards) != r.disks {
		return fmt.Errorf("%d shards for %d disks: %w", len(shards), r.disks, raiderrors.ErrShapeMismatch)
	}
	size := len(shards[0])
	for i := r.disks - 2; i < r.disks; i++ {
		if len(shards[i]) != size {
			shards[i] = make([]byte, size)
		}
	}
	if err := r.enc.Encode(shards); err != nil {
		return fmt.Errorf("failed to encode data: %w", mapRSError(err))
	}
	return nil
}

func (r *RSCodec) Verify(shards [][]byte) error {
	ok, err := r.enc.Verify(shards)
	if err != nil {
		return fmt.Errorf("failed to verify data: %w", mapRSError(err))
	}
	if !ok {
		return raiderrors.ErrParityMismatch
	}
	return nil
}

// Reconstruct rebuilds nil shards in place.
func (r *RSCodec) Reconstruct(shards [][]byte) error {
	var missing []int
	for i, s := range shards {
		if len(s) == 0 {
			missing = append(missing, i)
		}
	}
	if _, err := missingSet(r.disks, missing); err != nil {
		return err
	}
	if err := r.enc.Reconstruct(shards); err != nil {
		return fmt.Errorf("failed to reconstruct data: %w", mapRSError(err))
	}
	return nil
}

func mapRSError(err error) error {
	switch {
	case errors.Is(err, reedsolomon.ErrTooFewShards):
		return errors.Join(raiderrors.ErrUnrecoverable, err)
	case errors.Is(err, reedsolomon.ErrShardSize), errors.Is(err, reedsolomon.ErrShardNoData):
		return errors.Join(raiderrors.ErrShapeMismatch, err)
	}
	return err
}
