package erasurecoding

import (
	"context"
	"fmt"

	"github.com/colorfulnotion/raid6/galois"
	"github.com/colorfulnotion/raid6/log"
	"github.com/colorfulnotion/raid6/raiderrors"
)

// NoCorruption is returned by Locate when P and Q are consistent.
const NoCorruption = -1

// Locate finds a single silently corrupted disk. With P* = P + P' and
// Q* = Q + Q', a corrupted data disk z gives Q* = g^z * P* at every damaged
// offset, so z = log(Q*) - log(P*). Damage confined to P* or Q* points at the
// P or Q disk. Anything else cannot be a single-disk corruption.
func (c *Codec) Locate(ctx context.Context, shards [][]byte) (int, error) {
	p, q, err := c.syndromes(ctx, shards)
	if err != nil {
		return NoCorruption, err
	}
	galois.XorSlice(shards[c.PDisk()], p)
	galois.XorSlice(shards[c.QDisk()], q)

	found := NoCorruption
	for off := range p {
		ps, qs := p[off], q[off]
		var candidate int
		switch {
		case ps == 0 && qs == 0:
			continue
		case qs == 0:
			candidate = c.PDisk()
		case ps == 0:
			candidate = c.QDisk()
		default:
			lq, _ := c.field.Log(qs)
			lp, _ := c.field.Log(ps)
			candidate = ((lq-lp)%galois.Order + galois.Order) % galois.Order
			if candidate >= c.DataDisks() {
				return NoCorruption, fmt.Errorf("offset %d points at disk %d beyond %d data disks: %w",
					off, candidate, c.DataDisks(), raiderrors.ErrUnlocatable)
			}
		}
		if found == NoCorruption {
			found = candidate
		} else if found != candidate {
			return NoCorruption, fmt.Errorf("offset %d points at disk %d, earlier offsets at disk %d: %w",
				off, candidate, found, raiderrors.ErrUnlocatable)
		}
	}
	if found != NoCorruption {
		log.Warn(log.RecoveryMonitoring, "Locate: corruption found", "disk", found)
	}
	return found, nil
}
