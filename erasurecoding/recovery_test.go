package erasurecoding

import (
	"math/rand"
	"testing"

	"github.com/colorfulnotion/raid6/galois"
	"github.com/colorfulnotion/raid6/raiderrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomStripe returns a consistent stripe of n bytes.
func randomStripe(t *testing.T, f *galois.Field, rng *rand.Rand, n int) []byte {
	data := randomBlocks(rng, n-2, 1)
	p, err := GenerateP(data)
	require.NoError(t, err)
	q, err := GenerateQ(f, data)
	require.NoError(t, err)
	stripe := make([]byte, 0, n)
	for _, d := range data {
		stripe = append(stripe, d[0])
	}
	return append(stripe, p[0], q[0])
}

func TestRecoverStripeAllSingleFailures(t *testing.T) {
	f := galois.Default()
	rng := rand.New(rand.NewSource(1000003))
	for n := MinDisks; n <= 12; n++ {
		for trial := 0; trial < 20; trial++ {
			stripe := randomStripe(t, f, rng, n)
			for k := 0; k < n; k++ {
				damaged := append([]byte(nil), stripe...)
				damaged[k] = byte(rng.Intn(256))
				got, err := RecoverStripe(f, damaged, []int{k})
				require.NoError(t, err)
				require.Equal(t, stripe, got, "n=%d missing=%d", n, k)
			}
		}
	}
}

func TestRecoverStripeAllPairs(t *testing.T) {
	f := galois.Default()
	rng := rand.New(rand.NewSource(1000003))
	for n := 4; n <= 12; n++ {
		for trial := 0; trial < 20; trial++ {
			stripe := randomStripe(t, f, rng, n)
			for x := 0; x < n; x++ {
				for y := x + 1; y < n; y++ {
					damaged := append([]byte(nil), stripe...)
					damaged[x], damaged[y] = 0xEE, 0xEE
					got, err := RecoverStripe(f, damaged, []int{y, x})
					require.NoError(t, err)
					require.Equal(t, stripe, got, "n=%d missing=%d,%d", n, x, y)
				}
			}
		}
	}
}

func TestRecoverStripeWideArray(t *testing.T) {
	f := galois.Default()
	rng := rand.New(rand.NewSource(7))
	stripe := randomStripe(t, f, rng, MaxDisks)
	for _, pair := range [][2]int{{0, 254}, {100, 200}, {253, 255}, {254, 256}, {0, 256}} {
		damaged := append([]byte(nil), stripe...)
		damaged[pair[0]], damaged[pair[1]] = 0, 0
		got, err := RecoverStripe(f, damaged, pair[:])
		require.NoError(t, err)
		assert.Equal(t, stripe, got, "missing=%v", pair)
	}
}

func TestRecoverStripeNoFailures(t *testing.T) {
	f := galois.Default()
	stripe := []byte{0x01, 0x02, 0x03, 0x05}
	got, err := RecoverStripe(f, stripe, nil)
	require.NoError(t, err)
	assert.Equal(t, stripe, got)
	got[0] = 0xFF
	assert.Equal(t, byte(0x01), stripe[0], "result must not alias input")
}

func TestRecoverStripeUnrecoverable(t *testing.T) {
	f := galois.Default()
	stripe := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	got, err := RecoverStripe(f, stripe, []int{0, 1, 2})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, raiderrors.ErrUnrecoverable)

	// duplicates collapse
	_, err = RecoverStripe(f, stripe, []int{1, 1, 4})
	assert.NoError(t, err)

	_, err = RecoverStripe(f, stripe, []int{6})
	assert.ErrorIs(t, err, raiderrors.ErrShapeMismatch)

	_, err = RecoverStripe(f, []byte{1, 2}, []int{0})
	assert.ErrorIs(t, err, raiderrors.ErrInvalidGeometry)
}
