package erasurecoding

import (
	"context"
	"fmt"
	"runtime"

	"github.com/colorfulnotion/raid6/galois"
	"github.com/colorfulnotion/raid6/log"
	"github.com/colorfulnotion/raid6/raiderrors"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of offsets handed to one worker.
const DefaultChunkSize = 64 * 1024

// Codec computes, verifies and reconstructs P/Q over whole disk blocks.
// Stripes are independent, so offsets are processed in chunks by a bounded
// worker pool.
type Codec struct {
	field     *galois.Field
	disks     int
	workers   int
	chunkSize int
}

type Option func(*Codec)

// WithWorkers bounds the number of concurrent chunk workers. n <= 0 means
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *Codec) {
		if n <= 0 {
			n = runtime.NumCPU()
		}
		c.workers = n
	}
}

func WithChunkSize(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

func NewCodec(f *galois.Field, disks int, opts ...Option) (*Codec, error) {
	if err := CheckGeometry(disks); err != nil {
		return nil, err
	}
	c := &Codec{
		field:     f,
		disks:     disks,
		workers:   runtime.NumCPU(),
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Codec) Field() *galois.Field { return c.field }
func (c *Codec) Disks() int           { return c.disks }
func (c *Codec) DataDisks() int       { return c.disks - 2 }
func (c *Codec) PDisk() int           { return c.disks - 2 }
func (c *Codec) QDisk() int           { return c.disks - 1 }

// shape returns the shard length and the indexes of nil shards.
func (c *Codec) shape(shards [][]byte) (int, []int, error) {
	if len(shards) != c.disks {
		return 0, nil, fmt.Errorf("%d shards for %d disks: %w", len(shards), c.disks, raiderrors.ErrShapeMismatch)
	}
	size := -1
	var missing []int
	for i, s := range shards {
		if s == nil {
			missing = append(missing, i)
			continue
		}
		if size < 0 {
			size = len(s)
		} else if len(s) != size {
			return 0, nil, fmt.Errorf("shard %d has %d bytes, want %d: %w", i, len(s), size, raiderrors.ErrShapeMismatch)
		}
	}
	if size < 0 {
		return 0, nil, fmt.Errorf("all shards missing: %w", raiderrors.ErrUnrecoverable)
	}
	return size, missing, nil
}

// forEachChunk runs fn over [0, size) split into chunkSize ranges.
func (c *Codec) forEachChunk(ctx context.Context, size int, fn func(lo, hi int) error) error {
	if size <= c.chunkSize || c.workers <= 1 {
		return fn(0, size)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for lo := 0; lo < size; lo += c.chunkSize {
		if err := gctx.Err(); err != nil {
			break
		}
		lo, hi := lo, min(lo+c.chunkSize, size)
		g.Go(func() error {
			return fn(lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Encode computes P and Q from the data shards. P and Q shards are
// allocated when nil or of the wrong length.
func (c *Codec) Encode(ctx context.Context, shards [][]byte) error {
	if len(shards) != c.disks {
		return fmt.Errorf("%d shards for %d disks: %w", len(shards), c.disks, raiderrors.ErrShapeMismatch)
	}
	data := shards[:c.DataDisks()]
	size, err := blockSize(data)
	if err != nil {
		return err
	}
	for _, i := range []int{c.PDisk(), c.QDisk()} {
		if shards[i] == nil || len(shards[i]) != size {
			shards[i] = make([]byte, size)
		}
	}
	p, q := shards[c.PDisk()], shards[c.QDisk()]
	err = c.forEachChunk(ctx, size, func(lo, hi int) error {
		xorData(data, nil, lo, hi, p[lo:hi])
		weighData(c.field, data, nil, lo, hi, q[lo:hi])
		return nil
	})
	if err != nil {
		return err
	}
	log.Trace(log.ParityMonitoring, "Encode", "disks", c.disks, "size", size)
	return nil
}

// Verify recomputes P then Q and reports the first mismatch.
func (c *Codec) Verify(ctx context.Context, shards [][]byte) error {
	p, q, err := c.syndromes(ctx, shards)
	if err != nil {
		return err
	}
	if err := compareParity("P", p, shards[c.PDisk()]); err != nil {
		return err
	}
	return compareParity("Q", q, shards[c.QDisk()])
}

// syndromes recomputes P and Q from complete shards.
func (c *Codec) syndromes(ctx context.Context, shards [][]byte) ([]byte, []byte, error) {
	size, missing, err := c.shape(shards)
	if err != nil {
		return nil, nil, err
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("disks %v missing: %w", missing, raiderrors.ErrDiskUnavailable)
	}
	data := shards[:c.DataDisks()]
	p := make([]byte, size)
	q := make([]byte, size)
	err = c.forEachChunk(ctx, size, func(lo, hi int) error {
		xorData(data, nil, lo, hi, p[lo:hi])
		weighData(c.field, data, nil, lo, hi, q[lo:hi])
		return nil
	})
	return p, q, err
}

// Reconstruct rebuilds nil shards in place. Up to two shards may be nil;
// with more, ErrUnrecoverable is returned and shards are left untouched.
// It returns the indexes that were rebuilt.
func (c *Codec) Reconstruct(ctx context.Context, shards [][]byte) ([]int, error) {
	size, missing, err := c.shape(shards)
	if err != nil {
		return nil, err
	}
	lost, err := missingSet(c.disks, missing)
	if err != nil {
		return nil, err
	}
	if len(lost) == 0 {
		return nil, nil
	}
	for _, i := range lost {
		shards[i] = make([]byte, size)
	}
	err = c.forEachChunk(ctx, size, func(lo, hi int) error {
		return rebuild(c.field, shards, lost, lo, hi)
	})
	if err != nil {
		for _, i := range lost {
			shards[i] = nil
		}
		return nil, err
	}
	log.Debug(log.RecoveryMonitoring, "Reconstruct", "disks", lost, "size", size)
	return lost, nil
}
