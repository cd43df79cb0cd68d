package erasurecoding

import (
	"math/rand"
	"testing"

	"github.com/colorfulnotion/raid6/raiderrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutInterleavesBytes(t *testing.T) {
	l, err := NewLayout(2, 1)
	require.NoError(t, err)
	blocks := l.Split([]byte("good_morning_sir"))
	assert.Equal(t, []byte("go_onn_i"), blocks[0])
	assert.Equal(t, []byte("odmrigsr"), blocks[1])
}

func TestLayoutPadsLastRow(t *testing.T) {
	l, err := NewLayout(3, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, l.BlockSize(0))
	assert.Equal(t, 2, l.BlockSize(1))
	assert.Equal(t, 2, l.BlockSize(6))
	assert.Equal(t, 4, l.BlockSize(7))

	blocks := l.Split([]byte{1, 2, 3, 4, 5, 6, 7})
	assert.Equal(t, [][]byte{{1, 2, 7, 0}, {3, 4, 0, 0}, {5, 6, 0, 0}}, blocks)
}

func TestLayoutRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1000003))
	for _, dataDisks := range []int{1, 2, 5, 8} {
		for _, unit := range []int{1, 3, 512} {
			l, err := NewLayout(dataDisks, unit)
			require.NoError(t, err)
			for _, size := range []int{0, 1, 13, 4096, 5000} {
				payload := make([]byte, size)
				rng.Read(payload)
				blocks := l.Split(payload)
				require.Len(t, blocks, dataDisks)
				got, err := l.Join(blocks, size)
				require.NoError(t, err)
				require.Equal(t, payload, got, "disks=%d unit=%d size=%d", dataDisks, unit, size)
			}
		}
	}
}

func TestLayoutErrors(t *testing.T) {
	_, err := NewLayout(0, 1)
	assert.ErrorIs(t, err, raiderrors.ErrInvalidGeometry)
	_, err = NewLayout(2, 0)
	assert.ErrorIs(t, err, raiderrors.ErrInvalidGeometry)

	l, _ := NewLayout(2, 1)
	_, err = l.Join([][]byte{{1}}, 1)
	assert.ErrorIs(t, err, raiderrors.ErrShapeMismatch)
	_, err = l.Join([][]byte{{1}, {2}}, 10)
	assert.ErrorIs(t, err, raiderrors.ErrShapeMismatch)
}
