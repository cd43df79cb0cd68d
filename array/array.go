package array

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/colorfulnotion/raid6/erasurecoding"
	"github.com/colorfulnotion/raid6/galois"
	"github.com/colorfulnotion/raid6/log"
	"github.com/colorfulnotion/raid6/raiderrors"
	"github.com/colorfulnotion/raid6/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrStale marks a disk that missed the last write of an object.
var ErrStale = errors.New("block is stale")

// Config holds the per-array settings that are not part of the field.
type Config struct {
	Unit         int
	Workers      int
	ChunkSize    int
	IOWorkers    int
	VerifyOnRead bool
}

// Array stripes named objects across a disk set with P and Q parity.
type Array struct {
	cfg       Config
	field     *galois.Field
	codec     *erasurecoding.Codec
	layout    erasurecoding.Layout
	set       *storage.Set
	manifests *storage.ManifestStore
	tracer    trace.Tracer
	now       func() time.Time
}

func New(cfg Config, field *galois.Field, set *storage.Set, manifests *storage.ManifestStore) (*Array, error) {
	if cfg.Unit == 0 {
		cfg.Unit = 1
	}
	if cfg.IOWorkers <= 0 {
		cfg.IOWorkers = set.Len()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	codec, err := erasurecoding.NewCodec(field, set.Len(),
		erasurecoding.WithWorkers(cfg.Workers), erasurecoding.WithChunkSize(cfg.ChunkSize))
	if err != nil {
		return nil, err
	}
	layout, err := erasurecoding.NewLayout(codec.DataDisks(), cfg.Unit)
	if err != nil {
		return nil, err
	}
	return &Array{
		cfg:       cfg,
		field:     field,
		codec:     codec,
		layout:    layout,
		set:       set,
		manifests: manifests,
		tracer:    otel.Tracer("ArrayTracer"),
		now:       time.Now,
	}, nil
}

func (a *Array) Disks() int { return a.set.Len() }

// Role names the function of disk i: "data", "P" or "Q".
func (a *Array) Role(i int) string {
	switch i {
	case a.codec.PDisk():
		return "P"
	case a.codec.QDisk():
		return "Q"
	default:
		return "data"
	}
}

func (a *Array) staleError(disk int) error {
	return &raiderrors.DiskUnavailableError{Disk: disk, Err: ErrStale}
}

func (a *Array) span(ctx context.Context, op, name string) (context.Context, trace.Span) {
	return a.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("raid6.object", name),
		attribute.Int("raid6.disks", a.set.Len()),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// manifest loads the manifest for name and checks it was written with this
// array's geometry and field.
func (a *Array) manifest(name string) (storage.Manifest, error) {
	mf, found, err := a.manifests.Get(name)
	if err != nil {
		return mf, err
	}
	if !found {
		return mf, fmt.Errorf("%s: %w", name, storage.ErrObjectNotFound)
	}
	if mf.Disks != a.set.Len() {
		return mf, fmt.Errorf("%s written to %d disks, array has %d: %w", name, mf.Disks, a.set.Len(), raiderrors.ErrInvalidGeometry)
	}
	if mf.Polynomial != a.field.Polynomial() || mf.Generator != a.field.Generator() {
		return mf, fmt.Errorf("%s written with field (0x%x, 0x%02x), array uses %s: %w",
			name, mf.Polynomial, mf.Generator, a.field, raiderrors.ErrInvalidGeometry)
	}
	if _, err := erasurecoding.NewLayout(a.codec.DataDisks(), mf.Unit); err != nil {
		return mf, err
	}
	return mf, nil
}

func (a *Array) layoutFor(mf storage.Manifest) erasurecoding.Layout {
	return erasurecoding.Layout{DataDisks: a.codec.DataDisks(), Unit: mf.Unit}
}

// Write stores payload under name. The blocks go to a new generation and
// the manifest switch makes them current; the previous generation is removed
// afterwards. Disks that fail the write are recorded as stale and up to two
// are tolerated. A rejected write removes its blocks and leaves any earlier
// version of name readable.
func (a *Array) Write(ctx context.Context, name string, payload []byte) (health Health, err error) {
	ctx, span := a.span(ctx, "Write", name)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("raid6.size", len(payload)))

	if err := storage.CheckObjectName(name); err != nil {
		return Failed, err
	}
	prev, hadPrev, err := a.manifests.Get(name)
	if err != nil {
		return Failed, err
	}
	gen := uint64(1)
	if hadPrev {
		gen = prev.Gen + 1
	}
	block := storage.BlockName(name, gen)

	shards := append(a.layout.Split(payload), nil, nil)
	if err := a.codec.Encode(ctx, shards); err != nil {
		return Failed, err
	}
	all := allDisks(len(shards))
	failed, err := a.writeShards(ctx, block, shards, all)
	if err != nil {
		a.removeBlocks(context.WithoutCancel(ctx), block, all)
		return Failed, err
	}
	health = HealthFor(len(failed.errs))
	if !health.Recoverable() {
		log.Error(log.ArrayMonitoring, "Write failed", "name", name, "unavailable", failed.disks())
		a.removeBlocks(ctx, block, without(all, failed.disks()))
		return health, fmt.Errorf("write %s: %d disks unavailable: %w",
			name, len(failed.errs), errors.Join(raiderrors.ErrUnrecoverable, failed.join()))
	}
	mf := storage.Manifest{
		Name:       name,
		Gen:        gen,
		Size:       len(payload),
		BlockSize:  len(shards[0]),
		Unit:       a.layout.Unit,
		Disks:      a.set.Len(),
		Polynomial: a.field.Polynomial(),
		Generator:  a.field.Generator(),
		Digest:     storage.Digest(payload),
		Stale:      failed.disks(),
		Written:    a.now().UTC(),
	}
	if len(mf.Stale) == 0 {
		mf.Stale = nil
	}
	if err := a.manifests.Put(mf); err != nil {
		a.removeBlocks(ctx, block, all)
		return Failed, err
	}
	if hadPrev {
		// Leftovers on unreachable disks are orphaned, never read.
		a.removeBlocks(ctx, storage.BlockName(name, prev.Gen), all)
	}
	if health != Healthy {
		log.Warn(log.ArrayMonitoring, "degraded write", "name", name, "health", health, "unavailable", mf.Stale)
	} else {
		log.Debug(log.ArrayMonitoring, "Write", "name", name, "gen", gen, "size", len(payload), "blockSize", mf.BlockSize)
	}
	span.SetAttributes(attribute.String("raid6.health", health.String()))
	return health, nil
}

// Read returns the payload stored under name, reconstructing up to two
// unavailable disks.
func (a *Array) Read(ctx context.Context, name string) (payload []byte, health Health, err error) {
	ctx, span := a.span(ctx, "Read", name)
	defer func() { endSpan(span, err) }()

	mf, err := a.manifest(name)
	if err != nil {
		return nil, Failed, err
	}
	shards, failed, err := a.readShards(ctx, mf)
	if err != nil {
		return nil, Failed, err
	}
	health = HealthFor(len(failed.errs))
	span.SetAttributes(attribute.String("raid6.health", health.String()))
	if !health.Recoverable() {
		return nil, health, fmt.Errorf("read %s: %w", name, errors.Join(raiderrors.ErrUnrecoverable, failed.join()))
	}
	if health == Healthy {
		if a.cfg.VerifyOnRead {
			if err := a.codec.Verify(ctx, shards); err != nil {
				log.Warn(log.ArrayMonitoring, "parity check failed on read", "name", name, "err", err)
				return nil, health, fmt.Errorf("read %s: %w", name, err)
			}
		}
	} else {
		rebuilt, err := a.codec.Reconstruct(ctx, shards)
		if err != nil {
			return nil, health, err
		}
		log.Info(log.ArrayMonitoring, "degraded read", "name", name, "health", health, "rebuilt", rebuilt)
	}
	payload, err = a.layoutFor(mf).Join(shards[:a.codec.DataDisks()], mf.Size)
	if err != nil {
		return nil, health, err
	}
	if digest := storage.Digest(payload); digest != mf.Digest {
		return nil, health, fmt.Errorf("read %s: digest %s, manifest %s: %w", name, digest, mf.Digest, raiderrors.ErrIntegrityMismatch)
	}
	return payload, health, nil
}

// complete reads every disk of name and fails unless all are available.
func (a *Array) complete(ctx context.Context, name string) ([][]byte, error) {
	mf, err := a.manifest(name)
	if err != nil {
		return nil, err
	}
	shards, failed, err := a.readShards(ctx, mf)
	if err != nil {
		return nil, err
	}
	if len(failed.errs) > 0 {
		return nil, fmt.Errorf("%s: %w", name, failed.join())
	}
	return shards, nil
}

// Check recomputes P and Q of name and compares them with the stored parity.
// Every disk must be available.
func (a *Array) Check(ctx context.Context, name string) (err error) {
	ctx, span := a.span(ctx, "Check", name)
	defer func() { endSpan(span, err) }()

	shards, err := a.complete(ctx, name)
	if err != nil {
		return err
	}
	return a.codec.Verify(ctx, shards)
}

// Detect returns the single disk holding silently corrupted data for name,
// or erasurecoding.NoCorruption.
func (a *Array) Detect(ctx context.Context, name string) (disk int, err error) {
	ctx, span := a.span(ctx, "Detect", name)
	defer func() { endSpan(span, err) }()

	shards, err := a.complete(ctx, name)
	if err != nil {
		return erasurecoding.NoCorruption, err
	}
	disk, err = a.codec.Locate(ctx, shards)
	span.SetAttributes(attribute.Int("raid6.corrupt_disk", disk))
	return disk, err
}

// List returns the manifests of every stored object.
func (a *Array) List() ([]storage.Manifest, error) {
	return a.manifests.List()
}

// BlockObject returns the per-disk object name holding the current
// generation of name.
func (a *Array) BlockObject(name string) (string, error) {
	mf, err := a.manifest(name)
	if err != nil {
		return "", err
	}
	return storage.BlockName(mf.Name, mf.Gen), nil
}

// Delete drops the manifest of name, then removes its blocks from every
// reachable disk. Disks that could not be reached are reported.
func (a *Array) Delete(ctx context.Context, name string) (err error) {
	ctx, span := a.span(ctx, "Delete", name)
	defer func() { endSpan(span, err) }()

	mf, found, err := a.manifests.Get(name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: %w", name, storage.ErrObjectNotFound)
	}
	if err := a.manifests.Delete(name); err != nil {
		return err
	}
	return a.removeBlocks(ctx, storage.BlockName(name, mf.Gen), allDisks(a.set.Len()))
}
