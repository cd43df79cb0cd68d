package array

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/colorfulnotion/raid6/log"
	"github.com/colorfulnotion/raid6/storage"
	"golang.org/x/sync/errgroup"
)

// diskErrors collects per-disk failures from concurrent I/O.
type diskErrors struct {
	mu   sync.Mutex
	errs map[int]error
}

func (d *diskErrors) add(disk int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.errs == nil {
		d.errs = make(map[int]error)
	}
	d.errs[disk] = err
}

func (d *diskErrors) disks() []int {
	out := make([]int, 0, len(d.errs))
	for i := range d.errs {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

func (d *diskErrors) join() error {
	errs := make([]error, 0, len(d.errs))
	for _, i := range d.disks() {
		errs = append(errs, d.errs[i])
	}
	return errors.Join(errs...)
}

// readShards reads every disk's block for mf concurrently. Disks that fail,
// or that mf marks stale, come back as nil shards.
func (a *Array) readShards(ctx context.Context, mf storage.Manifest) ([][]byte, *diskErrors, error) {
	shards := make([][]byte, a.set.Len())
	failed := &diskErrors{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.IOWorkers)
	for i := range shards {
		if slices.Contains(mf.Stale, i) {
			failed.add(i, a.staleError(i))
			continue
		}
		g.Go(func() error {
			b, err := a.set.Read(gctx, i, storage.BlockName(mf.Name, mf.Gen), 0, mf.BlockSize)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.add(i, err)
				return nil
			}
			shards[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if len(failed.errs) > 0 {
		log.Debug(log.ArrayMonitoring, "readShards", "name", mf.Name, "unavailable", failed.disks())
	}
	return shards, failed, nil
}

// writeShards stores the shards at the given indexes as block concurrently.
// Disk failures are collected rather than aborting the other writes.
func (a *Array) writeShards(ctx context.Context, block string, shards [][]byte, disks []int) (*diskErrors, error) {
	failed := &diskErrors{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.IOWorkers)
	for _, i := range disks {
		g.Go(func() error {
			if err := a.set.Put(gctx, i, block, shards[i]); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.add(i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return failed, nil
}

// removeBlocks deletes block from the given disks. Failures are logged and
// returned joined; the caller decides whether they matter.
func (a *Array) removeBlocks(ctx context.Context, block string, disks []int) error {
	var errs []error
	for _, i := range disks {
		if err := a.set.Remove(ctx, i, block); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Debug(log.ArrayMonitoring, "removeBlocks", "block", block, "disk", i, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func allDisks(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func without(disks, drop []int) []int {
	var out []int
	for _, i := range disks {
		if !slices.Contains(drop, i) {
			out = append(out, i)
		}
	}
	return out
}
