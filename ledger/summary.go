package ledger

import (
	"github.com/montanaflynn/stats"
)

// Summary totals one run.
type Summary struct {
	Images int
	Tiles  int
	Pruned int
	Kept   int

	Pairs      int
	EmptyPairs int
	Copied     int

	// Per-pair copied tile statistics. Zero when there are no pairs.
	CopiedMean   float64
	CopiedMedian float64
	CopiedMax    float64
}

func (r *Run) Summary() Summary {
	s := Summary{Images: len(r.Images), Pairs: len(r.Pairs)}
	for _, e := range r.Images {
		s.Tiles += e.Tiles
		s.Pruned += e.Pruned
		s.Kept += e.Kept
	}
	copied := make([]float64, 0, len(r.Pairs))
	for _, e := range r.Pairs {
		s.Copied += e.Copied
		if e.Copied == 0 {
			s.EmptyPairs++
		}
		copied = append(copied, float64(e.Copied))
	}

	if len(copied) == 0 {
		return s
	}
	statsMustFloat := func(fn func() (float64, error)) float64 {
		out, _ := fn()
		return out
	}
	data := stats.Float64Data(copied)
	s.CopiedMean = statsMustFloat(data.Mean)
	s.CopiedMedian = statsMustFloat(data.Median)
	s.CopiedMax = statsMustFloat(data.Max)
	return s
}
