// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// bitbench drives the batched set-operation-count kernels: it builds a
// probe container and a reference container of random bitsets, then times
// the host backend across worker counts and the device backend against the
// same inputs.  Correctness lives in the library tests; this tool only
// measures.
package main

import (
	"flag"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/grailbio/bitcol/batch"
	"github.com/grailbio/bitcol/container"
	"github.com/grailbio/bitcol/log"
	"github.com/grailbio/bitcol/popcnt"
	"github.com/grailbio/bitcol/setop"
)

const minLength = 128

type config struct {
	length     int
	nProbe     int
	nRef       int
	maxWorkers int
}

func parseArgs(args []string) (cfg config, err error) {
	names := [4]string{"LENGTH", "NPROBE", "NREF", "MAXWORKERS"}
	vals := [4]int{}
	for i, arg := range args {
		vals[i], err = strconv.Atoi(arg)
		if err != nil {
			return cfg, errors.Wrapf(err, "parsing %s", names[i])
		}
		if vals[i] <= 0 {
			return cfg, errors.Errorf("%s must be positive, got %d", names[i], vals[i])
		}
	}
	cfg = config{length: vals[0], nProbe: vals[1], nRef: vals[2], maxWorkers: vals[3]}
	if cfg.length < minLength {
		return cfg, errors.Errorf("LENGTH must be >= %d, got %d", minLength, cfg.length)
	}
	if cfg.maxWorkers > batch.MaxWorkers {
		return cfg, errors.Errorf("MAXWORKERS must be <= %d, got %d", batch.MaxWorkers, cfg.maxWorkers)
	}
	return cfg, nil
}

func fillRandom(c *container.Container, rng *rand.Rand) {
	image := make([]byte, c.StrideWords()*popcnt.BytesPerWord)
	for i := 0; i < c.NElem(); i++ {
		rng.Read(image)
		c.Replace(i, image)
	}
}

func run(cfg config) {
	log.Opf("bitbench: length=%d probes=%d refs=%d maxworkers=%d popcnt-hw=%v",
		cfg.length, cfg.nProbe, cfg.nRef, cfg.maxWorkers, popcnt.HavePopcnt())

	rng := rand.New(rand.NewSource(1))
	probes := container.New(cfg.length, cfg.nProbe)
	refs := container.New(cfg.length, cfg.nRef)
	fillRandom(probes, rng)
	fillRandom(refs, rng)

	pairs := float64(cfg.nProbe) * float64(cfg.nRef)
	for workers := 1; workers <= cfg.maxWorkers; workers *= 2 {
		start := time.Now()
		counts := batch.CountMatrix(setop.Intersect, probes, refs, batch.Options{Workers: workers})
		elapsed := time.Since(start)
		log.Opf("host    workers=%-4d %12s  %.3e pairs/s  (cell[0]=%d)",
			workers, elapsed, pairs/elapsed.Seconds(), counts[0])
	}

	// First device call uploads both containers; the second reuses the
	// resident copies, isolating kernel time.
	start := time.Now()
	counts := batch.CountMatrixDevice(setop.Intersect, probes, refs, batch.DeviceOptions{})
	log.Opf("device  cold        %12s  (cell[0]=%d)", time.Since(start), counts[0])
	start = time.Now()
	counts = batch.CountMatrixDevice(setop.Intersect, probes, refs, batch.DeviceOptions{
		ReleaseFirst:  true,
		ReleaseSecond: true,
		ReleaseCounts: true,
	})
	elapsed := time.Since(start)
	log.Opf("device  warm        %12s  %.3e pairs/s  (cell[0]=%d)",
		elapsed, pairs/elapsed.Seconds(), counts[0])

	probes.Free()
	refs.Free()
}

func main() {
	log.AddFlags()
	rootCmd := &cobra.Command{
		Use:   "bitbench LENGTH NPROBE NREF MAXWORKERS",
		Short: "Benchmark the batched bitset set-operation-count kernels",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseArgs(args)
			if err != nil {
				return err
			}
			run(cfg)
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().AddGoFlagSet(flag.CommandLine)
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("bitbench: %v", err)
		os.Exit(1)
	}
}
