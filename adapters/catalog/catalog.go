// Package catalog loads point-source catalogs from JSON documents.
package catalog

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"gollh/domain/core"
	apperrors "gollh/internal/errors"
	"gollh/internal/source"
)

// Reader extracts sources from a JSON document. DataPath is a gjson path to
// the array of source objects. Each object carries "name" and either
// "ra"/"dec" in radians or "ra_deg"/"dec_deg" in degrees, plus an optional
// "weight" (default 1).
type Reader struct {
	DataPath string
	Client   *http.Client
}

// NewReader creates a reader for documents holding a "sources" array.
func NewReader() *Reader {
	return &Reader{
		DataPath: "sources",
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Parse reads the sources of a JSON document.
func (r *Reader) Parse(body []byte) ([]*source.PointLike, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.InvalidInput("catalog is not valid JSON")
	}
	dataPath := r.DataPath
	if dataPath == "" {
		dataPath = "@this"
	}
	result := gjson.GetBytes(body, dataPath)
	if !result.Exists() {
		return nil, core.NewNotFoundError("catalog data path", dataPath)
	}
	if !result.IsArray() {
		return nil, core.NewValidationError("catalog", fmt.Sprintf("data path %q is not an array", dataPath))
	}

	var (
		out []*source.PointLike
		err error
	)
	result.ForEach(func(key, value gjson.Result) bool {
		var src *source.PointLike
		src, err = parseSource(int(key.Int()), value)
		if err != nil {
			return false
		}
		out = append(out, src)
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, core.NewValidationError("catalog", "no sources found")
	}
	return out, nil
}

func parseSource(i int, v gjson.Result) (*source.PointLike, error) {
	name := v.Get("name").String()
	if name == "" {
		name = fmt.Sprintf("source_%d", i)
	}
	ra, dec, err := position(v)
	if err != nil {
		return nil, fmt.Errorf("catalog entry %d (%s): %w", i, name, err)
	}
	weight := 1.0
	if w := v.Get("weight"); w.Exists() {
		weight = w.Float()
	}
	return source.NewPointLike(name, ra, dec, weight)
}

func position(v gjson.Result) (ra, dec float64, err error) {
	switch {
	case v.Get("ra").Exists() && v.Get("dec").Exists():
		return v.Get("ra").Float(), v.Get("dec").Float(), nil
	case v.Get("ra_deg").Exists() && v.Get("dec_deg").Exists():
		return v.Get("ra_deg").Float() * math.Pi / 180, v.Get("dec_deg").Float() * math.Pi / 180, nil
	default:
		return 0, 0, core.NewValidationError("catalog entry", "missing ra/dec or ra_deg/dec_deg")
	}
}

// Load reads a catalog file.
func (r *Reader) Load(path string) ([]*source.PointLike, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return r.Parse(body)
}

// Fetch downloads and parses a catalog.
func (r *Reader) Fetch(ctx context.Context, url string) ([]*source.PointLike, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch catalog: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}
	return r.Parse(body)
}
