package bkggen

import (
	"math"

	"gollh/domain/core"
	"gollh/internal/events"
	"gollh/internal/sourcehypo"
)

// EventSelection pre-selects events before background sampling.
type EventSelection interface {
	// SelectEvents returns the selected events and their indices in tbl.
	SelectEvents(tbl *events.Table) (*events.Table, []int, error)
	ChangeSourceHypoGroupManager(mgr *sourcehypo.Manager)
}

// DecBandSelection keeps events whose declination lies within DeltaAngle of
// any source.
type DecBandSelection struct {
	DeltaAngle float64
	DecField   string

	srcDecs []float64
}

func NewDecBandSelection(mgr *sourcehypo.Manager, deltaAngle float64) (*DecBandSelection, error) {
	if !(deltaAngle > 0) {
		return nil, core.NewValidationError("declination band", "delta angle must be positive")
	}
	s := &DecBandSelection{DeltaAngle: deltaAngle, DecField: "dec"}
	s.ChangeSourceHypoGroupManager(mgr)
	return s, nil
}

func (s *DecBandSelection) ChangeSourceHypoGroupManager(mgr *sourcehypo.Manager) {
	s.srcDecs = s.srcDecs[:0]
	if mgr == nil {
		return
	}
	for _, src := range mgr.Sources() {
		s.srcDecs = append(s.srcDecs, src.Dec)
	}
}

func (s *DecBandSelection) SelectEvents(tbl *events.Table) (*events.Table, []int, error) {
	dec, err := tbl.Float64(s.DecField)
	if err != nil {
		return nil, nil, err
	}
	mask := make([]bool, len(dec))
	for i, d := range dec {
		for _, sd := range s.srcDecs {
			lo := math.Max(sd-s.DeltaAngle, -math.Pi/2)
			hi := math.Min(sd+s.DeltaAngle, math.Pi/2)
			if d > lo && d < hi {
				mask[i] = true
				break
			}
		}
	}
	idx := events.Mask(mask)
	return tbl.Take(idx), idx, nil
}
