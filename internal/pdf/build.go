package pdf

import (
	"context"
	"fmt"

	"gollh/internal"
	"gollh/internal/multiproc"
	"gollh/internal/parameters"
	"gollh/internal/timing"
)

// BuildFunc constructs the PDF of one grid point.
type BuildFunc[T PDF] func(ctx context.Context, params map[string]float64) (T, error)

// BuildSet constructs one PDF per grid point with up to ncpu workers and
// registers each under the grid point it was built for.
func BuildSet[T PDF](ctx context.Context, role Role, grids *parameters.GridSet, ncpu int, tl *timing.TimeLord, build BuildFunc[T]) (*Set[T], error) {
	set := NewSet[T](role, grids)
	paramsList := set.GridFitParamsList()

	internal.DefaultLogger.Debug("[PDFSet] building %d %s PDFs with %d workers", len(paramsList), role, ncpu)

	tt := timing.StartTask(tl, fmt.Sprintf("Build %s PDF set.", role))
	pdfs, err := multiproc.Parallelize(ctx, ncpu, paramsList, func(ctx context.Context, params map[string]float64) (T, error) {
		return build(ctx, params)
	})
	tt.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s PDF set: %w", role, err)
	}

	for i, p := range pdfs {
		if err := set.AddPDF(p, paramsList[i]); err != nil {
			return nil, err
		}
	}
	return set, nil
}
