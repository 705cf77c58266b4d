// Package services holds the detector signal yield array of an analysis and
// the per-source yield weights derived from it.
package services

import (
	"fmt"

	"gollh/domain/core"
	"gollh/domain/dataset"
	"gollh/internal"
	"gollh/internal/detsigyield"
	"gollh/internal/sourcehypo"
)

// DetSigYieldService builds and holds one DetSigYield per dataset and
// source hypothesis group.
type DetSigYieldService struct {
	shgMgr   *sourcehypo.Manager
	datasets []*dataset.Dataset
	datas    []*dataset.Data
	arr      [][]detsigyield.DetSigYield
	log      *internal.Logger
}

// NewDetSigYieldService constructs the (N_datasets x N_groups) yield array.
func NewDetSigYieldService(shgMgr *sourcehypo.Manager, datasets []*dataset.Dataset, datas []*dataset.Data) (*DetSigYieldService, error) {
	if shgMgr == nil {
		return nil, core.NewValidationError("source hypothesis group manager", "must not be nil")
	}
	if len(datasets) == 0 {
		return nil, core.NewValidationError("datasets", "at least one dataset is required")
	}
	if len(datasets) != len(datas) {
		return nil, fmt.Errorf("%w: %d datasets vs %d dataset data", core.ErrShapeMismatch, len(datasets), len(datas))
	}
	s := &DetSigYieldService{
		datasets: datasets,
		datas:    datas,
		log:      internal.DefaultLogger.WithComponent("DetSigYieldService"),
	}
	if err := s.ChangeShgMgr(shgMgr); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DetSigYieldService) ShgMgr() *sourcehypo.Manager  { return s.shgMgr }
func (s *DetSigYieldService) Datasets() []*dataset.Dataset { return s.datasets }
func (s *DetSigYieldService) Datas() []*dataset.Data       { return s.datas }
func (s *DetSigYieldService) NDatasets() int               { return len(s.datasets) }
func (s *DetSigYieldService) NShgs() int                   { return s.shgMgr.NGroups() }
func (s *DetSigYieldService) At(dsIdx, shgIdx int) detsigyield.DetSigYield {
	return s.arr[dsIdx][shgIdx]
}

// ChangeShgMgr binds a new manager and rebuilds the yield array.
func (s *DetSigYieldService) ChangeShgMgr(shgMgr *sourcehypo.Manager) error {
	arr, err := s.construct(shgMgr)
	if err != nil {
		return err
	}
	s.shgMgr = shgMgr
	s.arr = arr
	return nil
}

func (s *DetSigYieldService) construct(shgMgr *sourcehypo.Manager) ([][]detsigyield.DetSigYield, error) {
	nds := len(s.datasets)
	groups := shgMgr.Groups()
	arr := make([][]detsigyield.DetSigYield, nds)
	for dsIdx := range arr {
		arr[dsIdx] = make([]detsigyield.DetSigYield, len(groups))
		ds, data := s.datasets[dsIdx], s.datas[dsIdx]
		if data == nil || data.Livetime == nil {
			return nil, core.NewValidationError("dataset "+ds.Name, "livetime from the good-run list is required")
		}
		for gIdx, g := range groups {
			builder, err := g.BuilderFor(dsIdx, nds)
			if err != nil {
				return nil, fmt.Errorf("source hypothesis group %d: %w", gIdx, err)
			}
			dsy, err := builder.ConstructDetSigYield(ds, data, g.FluxModel, data.Livetime)
			if err != nil {
				return nil, fmt.Errorf("dataset %q, source hypothesis group %d: %w", ds.Name, gIdx, err)
			}
			arr[dsIdx][gIdx] = dsy
		}
	}
	s.log.Debug("constructed %d x %d detector signal yields", nds, len(groups))
	return arr, nil
}
