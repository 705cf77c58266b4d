// Package dataset describes a detector dataset and the event data loaded for it.
package dataset

import (
	"fmt"
	"path/filepath"

	"gollh/domain/core"
	"gollh/internal/binning"
	"gollh/internal/events"
	"gollh/internal/livetime"
)

// Dataset is the static description of one detector sample.
type Dataset struct {
	ID       core.DatasetID
	Name     string
	Root     string
	binnings map[string]*binning.Definition
	auxFiles map[string][]string
}

// New creates a dataset description with a fresh identifier.
func New(name, root string) *Dataset {
	return &Dataset{
		ID:       core.DatasetID(core.NewID()),
		Name:     name,
		Root:     root,
		binnings: make(map[string]*binning.Definition),
		auxFiles: make(map[string][]string),
	}
}

// AddBinningDefinition registers a binning by its name.
func (ds *Dataset) AddBinningDefinition(b *binning.Definition) error {
	if _, ok := ds.binnings[b.Name]; ok {
		return core.NewDuplicateKeyError("binning definition", b.Name)
	}
	ds.binnings[b.Name] = b
	return nil
}

// BinningDefinition looks up a binning by axis name.
func (ds *Dataset) BinningDefinition(name string) (*binning.Definition, error) {
	b, ok := ds.binnings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in dataset %q", core.ErrBinningNotFound, name, ds.Name)
	}
	return b, nil
}

// AddAuxDataDefinition registers auxiliary files under a logical name, relative to Root.
func (ds *Dataset) AddAuxDataDefinition(name string, files ...string) {
	ds.auxFiles[name] = append(ds.auxFiles[name], files...)
}

// AuxPathFilenames resolves the auxiliary files of a logical name.
func (ds *Dataset) AuxPathFilenames(name string) ([]string, error) {
	files, ok := ds.auxFiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in dataset %q", core.ErrAuxDataFileNotFound, name, ds.Name)
	}
	out := make([]string, len(files))
	for i, f := range files {
		if filepath.IsAbs(f) {
			out[i] = f
		} else {
			out[i] = filepath.Join(ds.Root, f)
		}
	}
	return out, nil
}

// Data holds the loaded event tables of a dataset.
type Data struct {
	Exp      *events.Table
	MC       *events.Table
	GRL      *events.Table
	Livetime *livetime.Livetime
}

// NewData assembles dataset data and derives the livetime from the good-run list when present.
func NewData(exp, mc, grl *events.Table) (*Data, error) {
	d := &Data{Exp: exp, MC: mc, GRL: grl}
	if grl != nil {
		lt, err := livetime.FromGRL(grl)
		if err != nil {
			return nil, err
		}
		d.Livetime = lt
	}
	return d, nil
}

// ExpFieldNames returns the experimental data fields.
func (d *Data) ExpFieldNames() []string {
	if d.Exp == nil {
		return nil
	}
	return d.Exp.FieldNames()
}

// AssertRequiredFields checks that exp and MC carry the given fields.
func (d *Data) AssertRequiredFields(expFields, mcFields []string) error {
	check := func(kind string, tbl *events.Table, names []string) error {
		if tbl == nil {
			return core.NewValidationError(kind+" data", "missing")
		}
		for _, n := range names {
			if !tbl.Has(n) {
				return fmt.Errorf("%w: required %s field %q", core.ErrDataFieldNotFound, kind, n)
			}
		}
		return nil
	}
	if err := check("experimental", d.Exp, expFields); err != nil {
		return err
	}
	return check("monte-carlo", d.MC, mcFields)
}
