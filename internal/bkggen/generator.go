package bkggen

import (
	"gollh/domain/core"
	"gollh/domain/dataset"
	"gollh/internal/events"
	"gollh/internal/sourcehypo"
	"gollh/internal/timing"
	"gollh/ports"
)

// Generator binds a background generation method to one dataset.
type Generator struct {
	method  Method
	dataset *dataset.Dataset
	data    *dataset.Data
}

func NewGenerator(method Method, ds *dataset.Dataset, data *dataset.Data) (*Generator, error) {
	if method == nil {
		return nil, core.NewValidationError("background generator", "method is required")
	}
	if data == nil {
		return nil, core.NewValidationError("background generator", "dataset data is required")
	}
	return &Generator{method: method, dataset: ds, data: data}, nil
}

func (g *Generator) Method() Method { return g.method }

func (g *Generator) ChangeSourceHypoGroupManager(mgr *sourcehypo.Manager) {
	g.method.ChangeSourceHypoGroupManager(mgr)
}

// GenerateBackgroundEvents draws one background sample.
func (g *Generator) GenerateBackgroundEvents(rss ports.RandomState, mean float64, poisson bool, tl *timing.TimeLord) (int, *events.Table, error) {
	return g.method.GenerateEvents(rss, g.dataset, g.data, mean, poisson, tl)
}
