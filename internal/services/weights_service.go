package services

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"gollh/domain/core"
	"gollh/internal/parameters"
	"gollh/internal/source"
	"gollh/internal/sourcehypo"
)

// SrcDetSigYieldWeightsService computes a_jk, the weighted detector signal
// yield of source k in dataset j, and its gradient with respect to every
// floating global parameter.
type SrcDetSigYieldWeightsService struct {
	dsys       *DetSigYieldService
	srcArrays  [][]source.Array
	srcWeights [][]float64

	aJK      *mat.Dense
	aJKGrads map[int]*mat.Dense
}

// NewSrcDetSigYieldWeightsService caches the source arrays and weights of
// every dataset and group combination.
func NewSrcDetSigYieldWeightsService(dsys *DetSigYieldService) (*SrcDetSigYieldWeightsService, error) {
	if dsys == nil {
		return nil, core.NewValidationError("detector signal yield service", "must not be nil")
	}
	s := &SrcDetSigYieldWeightsService{dsys: dsys}
	if err := s.cacheSources(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SrcDetSigYieldWeightsService) DetSigYieldService() *DetSigYieldService { return s.dsys }
func (s *SrcDetSigYieldWeightsService) ShgMgr() *sourcehypo.Manager             { return s.dsys.ShgMgr() }
func (s *SrcDetSigYieldWeightsService) NDatasets() int                          { return s.dsys.NDatasets() }
func (s *SrcDetSigYieldWeightsService) NShgs() int                              { return s.dsys.NShgs() }

func (s *SrcDetSigYieldWeightsService) cacheSources() error {
	groups := s.dsys.ShgMgr().Groups()
	s.srcArrays = make([][]source.Array, s.dsys.NDatasets())
	for dsIdx := range s.srcArrays {
		s.srcArrays[dsIdx] = make([]source.Array, len(groups))
		for gIdx, g := range groups {
			arr, err := s.dsys.At(dsIdx, gIdx).SourcesToArray(g.Sources)
			if err != nil {
				return err
			}
			s.srcArrays[dsIdx][gIdx] = arr
		}
	}
	s.srcWeights = make([][]float64, len(groups))
	for gIdx, g := range groups {
		s.srcWeights[gIdx] = g.Weights()
	}
	s.aJK, s.aJKGrads = nil, nil
	return nil
}

// ChangeShgMgr accepts only the manager already bound to the detector signal
// yield service, and refreshes the cached sources.
func (s *SrcDetSigYieldWeightsService) ChangeShgMgr(shgMgr *sourcehypo.Manager) error {
	if shgMgr != s.dsys.ShgMgr() {
		return fmt.Errorf("%w: change the manager of the detector signal yield service first", core.ErrManagerMismatch)
	}
	return s.cacheSources()
}

// Calculate evaluates a_jk and its gradients for the given per-source
// parameters, which must cover all sources in global order.
func (s *SrcDetSigYieldWeightsService) Calculate(srcParams *parameters.SrcParamsArray) error {
	mgr := s.dsys.ShgMgr()
	nSrc := mgr.NSources()
	if srcParams == nil || srcParams.Len() != nSrc {
		return fmt.Errorf("%w: source parameters must cover %d sources", core.ErrShapeMismatch, nSrc)
	}

	nds := s.dsys.NDatasets()
	aJK := mat.NewDense(nds, nSrc, nil)
	grads := make(map[int]*mat.Dense)

	for gIdx := 0; gIdx < mgr.NGroups(); gIdx++ {
		lo, hi := mgr.SourceRange(gIdx)
		params, err := srcParams.Slice(lo, hi)
		if err != nil {
			return err
		}
		weights := s.srcWeights[gIdx]
		for dsIdx := 0; dsIdx < nds; dsIdx++ {
			yields, ygrads, err := s.dsys.At(dsIdx, gIdx).Evaluate(s.srcArrays[dsIdx][gIdx], params)
			if err != nil {
				return fmt.Errorf("dataset %d, source hypothesis group %d: %w", dsIdx, gIdx, err)
			}
			for k, y := range yields {
				aJK.Set(dsIdx, lo+k, weights[k]*y)
			}
			for gpidx, g := range ygrads {
				m, ok := grads[gpidx]
				if !ok {
					m = mat.NewDense(nds, nSrc, nil)
					grads[gpidx] = m
				}
				for k, v := range g {
					m.Set(dsIdx, lo+k, m.At(dsIdx, lo+k)+weights[k]*v)
				}
			}
		}
	}

	s.aJK, s.aJKGrads = aJK, grads
	return nil
}

// GetWeights returns the result of the last Calculate, or nil, nil before the first one.
func (s *SrcDetSigYieldWeightsService) GetWeights() (*mat.Dense, map[int]*mat.Dense) {
	return s.aJK, s.aJKGrads
}

// Gradient returns the gradient of a_jk with respect to the global parameter
// gpidx. A parameter no source depends on gets a zero matrix; before the
// first Calculate it returns nil.
func (s *SrcDetSigYieldWeightsService) Gradient(gpidx int) *mat.Dense {
	if s.aJK == nil {
		return nil
	}
	if g, ok := s.aJKGrads[gpidx]; ok {
		return g
	}
	r, c := s.aJK.Dims()
	return mat.NewDense(r, c, nil)
}
