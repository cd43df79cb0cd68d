package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/colorfulnotion/raid6/raiderrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, root, backend string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raid6.yaml")
	body := "disks: 5\nroot: " + root + "\nbackend: " + backend + "\nlogLevel: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestWriteFailReadRepair(t *testing.T) {
	for _, backend := range []string{"dir", "leveldb"} {
		t.Run(backend, func(t *testing.T) {
			cfg := writeConfig(t, t.TempDir(), backend)
			payload := "good_morning_sir"

			out, err := run(t, payload, "--config", cfg, "write", "greeting")
			require.NoError(t, err)
			assert.Contains(t, out, "wrote greeting: 16 bytes across 5 disks")

			_, err = run(t, "", "--config", cfg, "fail", "0", "greeting")
			require.NoError(t, err)
			_, err = run(t, "", "--config", cfg, "fail", "3", "greeting")
			require.NoError(t, err)

			out, err = run(t, "", "--config", cfg, "status", "greeting")
			require.NoError(t, err)
			assert.Contains(t, out, "degraded-2")
			assert.Contains(t, out, "unavailable")

			out, err = run(t, "", "--config", cfg, "read", "greeting")
			require.NoError(t, err)
			assert.Equal(t, payload, out)

			_, err = run(t, "", "--config", cfg, "check", "greeting")
			assert.ErrorIs(t, err, raiderrors.ErrDiskUnavailable)

			out, err = run(t, "", "--config", cfg, "repair", "greeting")
			require.NoError(t, err)
			assert.Contains(t, out, "rebuilt disks [0 3]")

			out, err = run(t, "", "--config", cfg, "check", "greeting")
			require.NoError(t, err)
			assert.Contains(t, out, "parity")
		})
	}
}

func TestCorruptDetectRepair(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "dir")
	_, err := run(t, "some payload bytes", "--config", cfg, "write", "obj")
	require.NoError(t, err)

	_, err = run(t, "", "--config", cfg, "corrupt", "--offset", "2", "1", "obj")
	require.NoError(t, err)

	out, err := run(t, "", "--config", cfg, "detect", "obj")
	require.NoError(t, err)
	assert.Contains(t, out, "disk 1 (data) is corrupted")

	_, err = run(t, "", "--config", cfg, "read", "obj")
	assert.ErrorIs(t, err, raiderrors.ErrParityMismatch)

	out, err = run(t, "", "--config", cfg, "repair", "obj")
	require.NoError(t, err)
	assert.Contains(t, out, "rebuilt disks [1]")

	out, err = run(t, "", "--config", cfg, "detect", "obj")
	require.NoError(t, err)
	assert.Contains(t, out, "no corruption")
}

func TestListAndRemove(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "leveldb")
	for _, name := range []string{"a", "b"} {
		_, err := run(t, name, "--config", cfg, "write", name)
		require.NoError(t, err)
	}
	out, err := run(t, "", "--config", cfg, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "a ")
	assert.Contains(t, out, "b ")

	_, err = run(t, "", "--config", cfg, "rm", "a")
	require.NoError(t, err)
	out, err = run(t, "", "--config", cfg, "ls")
	require.NoError(t, err)
	assert.NotContains(t, out, "a ")
}

func TestBadDiskArg(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "dir")
	_, err := run(t, "", "--config", cfg, "fail", "9", "obj")
	assert.ErrorContains(t, err, "want 0..4")
}

func TestErrorLine(t *testing.T) {
	err := fmt.Errorf("read obj: %w", raiderrors.ErrUnrecoverable)
	assert.Equal(t, "Error [R7_Unrecoverable]: read obj: "+raiderrors.ErrUnrecoverable.Error(), errorLine(err))
	assert.Equal(t, "Error: plain", errorLine(errors.New("plain")))
}

func TestBench(t *testing.T) {
	results, err := runBench(context.Background(), 6, 4096, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "pq", results[0].codec)
	assert.Equal(t, "reedsolomon", results[1].codec)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "raid6ctl dev")
}
