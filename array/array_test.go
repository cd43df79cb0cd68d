package array

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/raid6/erasurecoding"
	"github.com/colorfulnotion/raid6/galois"
	"github.com/colorfulnotion/raid6/log"
	"github.com/colorfulnotion/raid6/raiderrors"
	"github.com/colorfulnotion/raid6/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testArray struct {
	*Array
	faulty []*storage.FaultyDisk
	store  *storage.PersistenceStore
}

func newTestArray(t *testing.T, disks int, cfg Config) *testArray {
	t.Helper()
	store, err := storage.NewMemoryPersistenceStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newArrayOnStore(t, store, disks, cfg)
}

func newArrayOnStore(t *testing.T, store *storage.PersistenceStore, disks int, cfg Config) *testArray {
	t.Helper()
	faulty := make([]*storage.FaultyDisk, disks)
	set := make([]storage.Disk, disks)
	for i := range set {
		faulty[i] = storage.NewFaultyDisk(storage.NewLevelDisk(store, i))
		set[i] = faulty[i]
	}
	s, err := storage.NewSet(set...)
	require.NoError(t, err)
	a, err := New(cfg, galois.Default(), s, storage.NewManifestStore(store))
	require.NoError(t, err)
	return &testArray{Array: a, faulty: faulty, store: store}
}

func randomPayload(rng *rand.Rand, size int) []byte {
	b := make([]byte, size)
	rng.Read(b)
	return b
}

func TestHealthFor(t *testing.T) {
	assert.Equal(t, Healthy, HealthFor(0))
	assert.Equal(t, Degraded1, HealthFor(1))
	assert.Equal(t, Degraded2, HealthFor(2))
	assert.Equal(t, Failed, HealthFor(3))
	assert.Equal(t, Failed, HealthFor(10))
	assert.False(t, Failed.Recoverable())
	assert.Equal(t, "degraded-2", Degraded2.String())
}

func TestWriteRead(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ctx := context.Background()
	for _, unit := range []int{1, 4, 512} {
		for _, size := range []int{0, 1, 5, 100, 4097} {
			t.Run(fmt.Sprintf("unit=%d/size=%d", unit, size), func(t *testing.T) {
				a := newTestArray(t, 6, Config{Unit: unit, VerifyOnRead: true})
				payload := randomPayload(rng, size)

				health, err := a.Write(ctx, "obj", payload)
				require.NoError(t, err)
				assert.Equal(t, Healthy, health)

				got, health, err := a.Read(ctx, "obj")
				require.NoError(t, err)
				assert.Equal(t, Healthy, health)
				assert.Equal(t, payload, got)
				assert.NoError(t, a.Check(ctx, "obj"))
			})
		}
	}
}

func TestDegradedRead(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	ctx := context.Background()
	const disks = 6
	a := newTestArray(t, disks, Config{Unit: 3, Workers: 2, ChunkSize: 16})
	payload := randomPayload(rng, 1000)
	_, err := a.Write(ctx, "obj", payload)
	require.NoError(t, err)

	for x := 0; x < disks; x++ {
		a.faulty[x].Fail()
		got, health, err := a.Read(ctx, "obj")
		require.NoError(t, err, "disk %d", x)
		assert.Equal(t, Degraded1, health)
		assert.Equal(t, payload, got, "disk %d", x)

		for y := x + 1; y < disks; y++ {
			a.faulty[y].Fail()
			got, health, err := a.Read(ctx, "obj")
			require.NoError(t, err, "disks %d,%d", x, y)
			assert.Equal(t, Degraded2, health)
			assert.Equal(t, payload, got, "disks %d,%d", x, y)
			a.faulty[y].Heal()
		}
		a.faulty[x].Heal()
	}

	for _, i := range []int{0, 2, 5} {
		a.faulty[i].Fail()
	}
	_, health, err := a.Read(ctx, "obj")
	assert.ErrorIs(t, err, raiderrors.ErrUnrecoverable)
	assert.ErrorIs(t, err, storage.ErrDiskDown)
	assert.Equal(t, Failed, health)
}

func TestDegradedWriteAndRepair(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Root()
	defer log.SetDefault(prev)
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(&buf, log.LevelWarn, false)))

	rng := rand.New(rand.NewSource(3))
	ctx := context.Background()
	a := newTestArray(t, 5, Config{VerifyOnRead: true})
	old := randomPayload(rng, 300)
	_, err := a.Write(ctx, "obj", old)
	require.NoError(t, err)

	a.faulty[1].Fail()
	a.faulty[4].Fail()
	payload := randomPayload(rng, 300)
	health, err := a.Write(ctx, "obj", payload)
	require.NoError(t, err)
	assert.Equal(t, Degraded2, health)
	assert.Contains(t, buf.String(), "degraded write")

	// The old blocks on the healed disks must not be trusted.
	a.faulty[1].Heal()
	a.faulty[4].Heal()
	got, health, err := a.Read(ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, Degraded2, health)
	assert.Equal(t, payload, got)

	st, err := a.Status(ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, Degraded2, st.Health)
	assert.True(t, st.Disks[1].Stale)
	assert.False(t, st.Disks[1].Available)
	assert.True(t, st.Disks[0].Available)

	report, err := a.Repair(ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, Degraded2, report.Before)
	assert.Equal(t, []int{1, 4}, report.Rebuilt)
	assert.Equal(t, erasurecoding.NoCorruption, report.Corrupted)

	got, health, err = a.Read(ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, Healthy, health)
	assert.Equal(t, payload, got)
	assert.NoError(t, a.Check(ctx, "obj"))
}

func TestWriteTooManyFailures(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, 6, Config{})
	for _, i := range []int{0, 1, 4} {
		a.faulty[i].Fail()
	}
	health, err := a.Write(ctx, "obj", []byte("payload"))
	assert.ErrorIs(t, err, raiderrors.ErrUnrecoverable)
	assert.Equal(t, Failed, health)

	_, _, err = a.Read(ctx, "obj")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestRejectedOverwriteKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, 6, Config{VerifyOnRead: true})
	original := []byte("first version of the object")
	_, err := a.Write(ctx, "obj", original)
	require.NoError(t, err)

	for _, i := range []int{0, 1, 4} {
		a.faulty[i].Fail()
	}
	health, err := a.Write(ctx, "obj", []byte("second version, never accepted"))
	assert.ErrorIs(t, err, raiderrors.ErrUnrecoverable)
	assert.Equal(t, Failed, health)
	for _, i := range []int{0, 1, 4} {
		a.faulty[i].Heal()
	}

	got, health, err := a.Read(ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, Healthy, health)
	assert.Equal(t, original, got)
	require.NoError(t, a.Check(ctx, "obj"))
	for _, i := range []int{2, 3, 5} {
		_, err = a.faulty[i].ReadAt(storage.BlockName("obj", 2), 0, 1)
		assert.ErrorIs(t, err, storage.ErrObjectNotFound, "disk %d", i)
	}
}

func TestOverwriteRemovesPreviousGeneration(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, 4, Config{})
	_, err := a.Write(ctx, "obj", []byte("a much longer first payload"))
	require.NoError(t, err)
	_, err = a.Write(ctx, "obj", []byte("short"))
	require.NoError(t, err)

	block, err := a.BlockObject("obj")
	require.NoError(t, err)
	assert.Equal(t, storage.BlockName("obj", 2), block)
	for i := range a.faulty {
		_, err = a.faulty[i].ReadAt(storage.BlockName("obj", 1), 0, 1)
		assert.ErrorIs(t, err, storage.ErrObjectNotFound, "disk %d", i)
	}
	got, _, err := a.Read(ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, []byte("short"), got)

	_, err = a.Write(ctx, "bad@name", []byte("x"))
	assert.ErrorIs(t, err, storage.ErrInvalidName)
}

func corruptByte(t *testing.T, a *testArray, disk int, off int64) {
	t.Helper()
	block, err := a.BlockObject("obj")
	require.NoError(t, err)
	b, err := a.faulty[disk].ReadAt(block, off, 1)
	require.NoError(t, err)
	require.NoError(t, a.faulty[disk].WriteAt(block, off, []byte{b[0] ^ 0x5a}))
}

func TestRepairRejectsInconsistentRebuild(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, 5, Config{})
	_, err := a.Write(ctx, "obj", []byte("payload spread over three data disks"))
	require.NoError(t, err)
	block, err := a.BlockObject("obj")
	require.NoError(t, err)

	require.NoError(t, a.faulty[0].Remove(block))
	corruptByte(t, a, 1, 2)

	_, err = a.Repair(ctx, "obj")
	assert.ErrorIs(t, err, raiderrors.ErrParityMismatch)
	_, err = a.faulty[0].ReadAt(block, 0, 1)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	st, err := a.Status(ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, Degraded1, st.Health)
}

func TestSilentCorruption(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	ctx := context.Background()
	const disks = 7
	for z := 0; z < disks; z++ {
		t.Run(fmt.Sprintf("disk=%d", z), func(t *testing.T) {
			a := newTestArray(t, disks, Config{VerifyOnRead: true})
			payload := randomPayload(rng, 200)
			_, err := a.Write(ctx, "obj", payload)
			require.NoError(t, err)

			disk, err := a.Detect(ctx, "obj")
			require.NoError(t, err)
			assert.Equal(t, erasurecoding.NoCorruption, disk)

			corruptByte(t, a, z, 3)
			corruptByte(t, a, z, 17)

			assert.ErrorIs(t, a.Check(ctx, "obj"), raiderrors.ErrParityMismatch)
			_, _, err = a.Read(ctx, "obj")
			assert.ErrorIs(t, err, raiderrors.ErrParityMismatch)

			disk, err = a.Detect(ctx, "obj")
			require.NoError(t, err)
			assert.Equal(t, z, disk)

			report, err := a.Repair(ctx, "obj")
			require.NoError(t, err)
			assert.Equal(t, Healthy, report.Before)
			assert.Equal(t, z, report.Corrupted)
			assert.Equal(t, []int{z}, report.Rebuilt)

			require.NoError(t, a.Check(ctx, "obj"))
			got, _, err := a.Read(ctx, "obj")
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestDigestCatchesCorruptionWithoutVerify(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, 4, Config{})
	_, err := a.Write(ctx, "obj", []byte("good_morning_sir"))
	require.NoError(t, err)
	corruptByte(t, a, 0, 0)

	_, _, err = a.Read(ctx, "obj")
	assert.ErrorIs(t, err, raiderrors.ErrIntegrityMismatch)
}

func TestCheckNeedsAllDisks(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, 4, Config{})
	_, err := a.Write(ctx, "obj", []byte{1, 2, 3, 4})
	require.NoError(t, err)

	a.faulty[2].Fail()
	assert.ErrorIs(t, a.Check(ctx, "obj"), raiderrors.ErrDiskUnavailable)
	_, err = a.Detect(ctx, "obj")
	assert.ErrorIs(t, err, raiderrors.ErrDiskUnavailable)

	a.faulty[0].Fail()
	a.faulty[3].Fail()
	_, err = a.Repair(ctx, "obj")
	assert.ErrorIs(t, err, raiderrors.ErrUnrecoverable)
}

func TestStatusAndRoles(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, 5, Config{})
	_, err := a.Write(ctx, "obj", []byte("hello"))
	require.NoError(t, err)

	a.faulty[3].Fail()
	st, err := a.Status(ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, Degraded1, st.Health)
	assert.Equal(t, 5, st.Manifest.Size)
	roles := make([]string, len(st.Disks))
	for i, d := range st.Disks {
		roles[i] = d.Role
	}
	assert.Equal(t, []string{"data", "data", "data", "P", "Q"}, roles)
	assert.False(t, st.Disks[3].Available)
	assert.Contains(t, st.Disks[3].Err, "disk down")
	assert.False(t, st.Disks[3].Stale)
}

func TestDeleteAndList(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, 4, Config{})
	for _, name := range []string{"b", "a"} {
		_, err := a.Write(ctx, name, []byte(name))
		require.NoError(t, err)
	}
	all, err := a.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)

	a.faulty[1].Fail()
	err = a.Delete(ctx, "a")
	assert.ErrorIs(t, err, raiderrors.ErrDiskUnavailable)
	_, _, err = a.Read(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	assert.ErrorIs(t, a.Delete(ctx, "a"), storage.ErrObjectNotFound)
}

func TestManifestGeometryMismatch(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, 6, Config{})
	_, err := a.Write(ctx, "obj", []byte("payload"))
	require.NoError(t, err)

	b := newArrayOnStore(t, a.store, 5, Config{})
	_, _, err = b.Read(ctx, "obj")
	assert.ErrorIs(t, err, raiderrors.ErrInvalidGeometry)

	field, err := galois.Build(0x11B, 0x03)
	require.NoError(t, err)
	s, err := storage.NewSet(a.set.Disks()...)
	require.NoError(t, err)
	c, err := New(Config{}, field, s, storage.NewManifestStore(a.store))
	require.NoError(t, err)
	_, _, err = c.Read(ctx, "obj")
	assert.ErrorIs(t, err, raiderrors.ErrInvalidGeometry)
}

func TestDirDiskArray(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	set, err := storage.OpenDirSet(root, 5)
	require.NoError(t, err)
	store, err := storage.NewPersistenceStore(filepath.Join(root, "manifest"))
	require.NoError(t, err)
	defer store.Close()
	a, err := New(Config{Unit: 2}, galois.Default(), set, storage.NewManifestStore(store))
	require.NoError(t, err)

	payload := []byte("good_morning_sir")
	_, err = a.Write(ctx, "greeting", payload)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "disk0", storage.BlockName("greeting", 1))))
	require.NoError(t, os.Truncate(filepath.Join(root, "disk3", storage.BlockName("greeting", 1)), 1))

	got, health, err := a.Read(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, Degraded2, health)
	assert.Equal(t, payload, got)

	report, err := a.Repair(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, report.Rebuilt)
	assert.NoError(t, a.Check(ctx, "greeting"))
}

func TestCancelledWrite(t *testing.T) {
	a := newTestArray(t, 4, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Write(ctx, "obj", []byte("payload"))
	assert.ErrorIs(t, err, context.Canceled)
}
