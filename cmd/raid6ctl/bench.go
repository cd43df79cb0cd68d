package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/colorfulnotion/raid6/erasurecoding"
	"github.com/colorfulnotion/raid6/galois"
	"github.com/spf13/cobra"
)

type benchResult struct {
	codec       string
	encode      time.Duration
	reconstruct time.Duration
}

func benchShards(rng *rand.Rand, disks, size int) [][]byte {
	shards := make([][]byte, disks)
	for i := range disks - 2 {
		shards[i] = make([]byte, size)
		rng.Read(shards[i])
	}
	return shards
}

// runBench times encoding and a two-data-disk reconstruction with the
// table-driven P/Q codec and with the Reed-Solomon codec on the same data.
func runBench(ctx context.Context, disks, size, workers int) ([]benchResult, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pq, err := erasurecoding.NewCodec(galois.Default(), disks, erasurecoding.WithWorkers(workers))
	if err != nil {
		return nil, err
	}
	rs, err := erasurecoding.NewRSCodec(disks)
	if err != nil {
		return nil, err
	}

	var results []benchResult
	shards := benchShards(rng, disks, size)
	start := time.Now()
	if err := pq.Encode(ctx, shards); err != nil {
		return nil, err
	}
	r := benchResult{codec: "pq", encode: time.Since(start)}
	shards[0], shards[1] = nil, nil
	start = time.Now()
	if _, err := pq.Reconstruct(ctx, shards); err != nil {
		return nil, err
	}
	r.reconstruct = time.Since(start)
	results = append(results, r)

	shards = benchShards(rng, disks, size)
	start = time.Now()
	if err := rs.Encode(shards); err != nil {
		return nil, err
	}
	r = benchResult{codec: "reedsolomon", encode: time.Since(start)}
	shards[0], shards[1] = nil, nil
	start = time.Now()
	if err := rs.Reconstruct(shards); err != nil {
		return nil, err
	}
	r.reconstruct = time.Since(start)
	return append(results, r), nil
}

func mbps(bytes int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(bytes) / d.Seconds() / (1 << 20)
}

func benchCmd() *cobra.Command {
	var disks, size, workers int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare the P/Q codec with klauspost/reedsolomon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := runBench(cmd.Context(), disks, size, workers)
			if err != nil {
				return err
			}
			data := (disks - 2) * size
			fmt.Fprintf(cmd.OutOrStdout(), "%d disks, %d bytes per disk\n", disks, size)
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s encode %10v (%8.1f MB/s)  reconstruct %10v (%8.1f MB/s)\n",
					r.codec, r.encode, mbps(data, r.encode), r.reconstruct, mbps(data, r.reconstruct))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&disks, "disks", 10, "Disks in the array, data plus P and Q")
	cmd.Flags().IntVar(&size, "size", 1<<20, "Bytes per disk")
	cmd.Flags().IntVar(&workers, "workers", 0, "Codec workers (0 = NumCPU)")
	return cmd
}
