package bkggen

import (
	"math"

	"gollh/domain/core"
	"gollh/domain/dataset"
	"gollh/internal/events"
	"gollh/internal/scrambling"
	"gollh/internal/sourcehypo"
	"gollh/internal/timing"
	"gollh/ports"
)

// DataScrambling generates background by scrambling the experimental data.
// The number of events is the number of experimental events unless a
// non-negative mean is given.
type DataScrambling struct {
	scrambler *scrambling.Scrambler
}

func NewDataScrambling(scrambler *scrambling.Scrambler) (*DataScrambling, error) {
	if scrambler == nil {
		return nil, core.NewValidationError("data scrambling", "scrambler is required")
	}
	return &DataScrambling{scrambler: scrambler}, nil
}

func (m *DataScrambling) ChangeSourceHypoGroupManager(*sourcehypo.Manager) {}

func (m *DataScrambling) GenerateEvents(rss ports.RandomState, ds *dataset.Dataset, data *dataset.Data, mean float64, poisson bool, tl *timing.TimeLord) (int, *events.Table, error) {
	if data == nil || data.Exp == nil {
		return 0, nil, core.NewValidationError("data scrambling", "experimental data is required")
	}
	exp := data.Exp
	if mean >= 0 {
		n := int(math.Round(mean))
		if poisson {
			n = rss.Poisson(mean)
		}
		idx, err := rss.Choice(exp.Len(), n, nil, true)
		if err != nil {
			return 0, nil, err
		}
		exp = exp.Take(idx)
	}

	var out *events.Table
	err := timing.Time(tl, "Scramble experimental data.", func() error {
		var err error
		out, err = m.scrambler.ScrambleData(rss, exp, true)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return out.Len(), out, nil
}
