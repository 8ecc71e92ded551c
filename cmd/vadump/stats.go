/*
DESCRIPTION
  stats.go provides collection and reporting of slice size statistics.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// sliceStats holds slice sizes in bytes keyed by slice type name.
type sliceStats struct {
	sizes map[string][]float64
}

func newSliceStats() *sliceStats {
	return &sliceStats{sizes: make(map[string][]float64)}
}

func (s *sliceStats) add(typ string, size int) {
	s.sizes[typ] = append(s.sizes[typ], float64(size))
}

// summary is the size summary for a single slice type.
type summary struct {
	Type         string
	N            int
	Mean, StdDev float64
	Min, Max     float64
}

// summaries returns a summary for each slice type seen, ordered by type name.
func (s *sliceStats) summaries() []summary {
	var res []summary
	for typ, x := range s.sizes {
		mean, std := stat.MeanStdDev(x, nil)
		if len(x) == 1 {
			std = 0
		}
		res = append(res, summary{
			Type:   typ,
			N:      len(x),
			Mean:   mean,
			StdDev: std,
			Min:    floats.Min(x),
			Max:    floats.Max(x),
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Type < res[j].Type })
	return res
}

// report writes the slice size summaries to w.
func (s *sliceStats) report(w io.Writer) error {
	for _, sum := range s.summaries() {
		_, err := fmt.Fprintf(w, "%s slices: n=%d mean=%.1f sd=%.1f min=%.0f max=%.0f\n",
			sum.Type, sum.N, sum.Mean, sum.StdDev, sum.Min, sum.Max)
		if err != nil {
			return err
		}
	}
	return nil
}
