package array

import (
	"context"
	"fmt"

	"github.com/colorfulnotion/raid6/erasurecoding"
	"github.com/colorfulnotion/raid6/log"
	"github.com/colorfulnotion/raid6/raiderrors"
	"github.com/colorfulnotion/raid6/storage"
	"go.opentelemetry.io/otel/attribute"
)

// RepairReport describes what Repair rewrote.
type RepairReport struct {
	Name string `json:"name"`
	// Before is the health seen when the repair started.
	Before Health `json:"before"`
	// Rebuilt lists disks whose blocks were reconstructed and rewritten.
	Rebuilt []int `json:"rebuilt,omitempty"`
	// Corrupted is the disk found silently corrupted, or NoCorruption.
	Corrupted int `json:"corrupted"`
}

// Repaired reports whether anything was rewritten.
func (r RepairReport) Repaired() bool { return len(r.Rebuilt) > 0 }

// Repair restores full redundancy for name. Unavailable or stale disks are
// reconstructed; when every disk is readable a single silently corrupted
// disk is located and rebuilt. The rebuilt stripe must pass the parity and
// digest checks before anything is written, and rewritten blocks are read
// back and verified again before the manifest is updated.
func (a *Array) Repair(ctx context.Context, name string) (report RepairReport, err error) {
	ctx, span := a.span(ctx, "Repair", name)
	defer func() { endSpan(span, err) }()

	report = RepairReport{Name: name, Corrupted: erasurecoding.NoCorruption}
	mf, err := a.manifest(name)
	if err != nil {
		return report, err
	}
	shards, failed, err := a.readShards(ctx, mf)
	if err != nil {
		return report, err
	}
	report.Before = HealthFor(len(failed.errs))
	if !report.Before.Recoverable() {
		return report, fmt.Errorf("repair %s: %w", name, raiderrors.ErrUnrecoverable)
	}

	if report.Before == Healthy {
		z, err := a.codec.Locate(ctx, shards)
		if err != nil {
			return report, err
		}
		if z == erasurecoding.NoCorruption {
			return report, nil
		}
		report.Corrupted = z
		shards[z] = nil
	}

	rebuilt, err := a.codec.Reconstruct(ctx, shards)
	if err != nil {
		return report, err
	}
	if err := a.codec.Verify(ctx, shards); err != nil {
		log.Warn(log.ArrayMonitoring, "rebuilt stripe rejected", "name", name, "rebuilt", rebuilt, "err", err)
		return report, fmt.Errorf("repair %s: %w", name, err)
	}
	payload, err := a.layoutFor(mf).Join(shards[:a.codec.DataDisks()], mf.Size)
	if err != nil {
		return report, err
	}
	if digest := storage.Digest(payload); digest != mf.Digest {
		return report, fmt.Errorf("repair %s: digest %s, manifest %s: %w", name, digest, mf.Digest, raiderrors.ErrIntegrityMismatch)
	}
	writeFailed, err := a.writeShards(ctx, storage.BlockName(mf.Name, mf.Gen), shards, rebuilt)
	if err != nil {
		return report, err
	}
	if len(writeFailed.errs) > 0 {
		return report, fmt.Errorf("repair %s: %w", name, writeFailed.join())
	}
	report.Rebuilt = rebuilt

	mf.Stale = nil
	verify, failed, err := a.readShards(ctx, mf)
	if err != nil {
		return report, err
	}
	if len(failed.errs) > 0 {
		return report, fmt.Errorf("repair %s: read back: %w", name, failed.join())
	}
	if err := a.codec.Verify(ctx, verify); err != nil {
		return report, fmt.Errorf("repair %s: verify: %w", name, err)
	}
	if err := a.manifests.Put(mf); err != nil {
		return report, err
	}
	span.SetAttributes(attribute.IntSlice("raid6.rebuilt", rebuilt))
	log.Info(log.ArrayMonitoring, "Repair", "name", name, "before", report.Before, "rebuilt", rebuilt, "corrupted", report.Corrupted)
	return report, nil
}
