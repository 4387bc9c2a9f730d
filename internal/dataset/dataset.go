// Package dataset loads tabular data from CSV into a FeatureMatrix and a
// target vector. Categorical (string) columns are dummy encoded with the
// first level dropped.
package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"featsel/internal/selection"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rs/zerolog/log"
)

// Dataset is a loaded table split into features and target.
type Dataset struct {
	Name     string
	Features *selection.FeatureMatrix
	Target   []float64
}

// LoadCSV reads the CSV file at path. target names the response column.
func LoadCSV(path, target string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadCSV(f, name, target)
}

// ReadCSV parses CSV data with a header row from r.
func ReadCSV(r io.Reader, name, target string) (*Dataset, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues([]string{"", "NA", "NaN", "nan", "null"}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", df.Err)
	}
	return FromDataFrame(df, name, target)
}

// FromDataFrame converts df into a Dataset.
func FromDataFrame(df dataframe.DataFrame, name, target string) (*Dataset, error) {
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("dataset %s has no rows", name)
	}

	var targetCol []float64
	var names []string
	var cols [][]float64
	for _, col := range df.Names() {
		s := df.Col(col)
		if s.HasNaN() {
			return nil, fmt.Errorf("column %q has missing values", col)
		}

		if col == target {
			if s.Type() == series.String {
				return nil, fmt.Errorf("target column %q is not numeric", col)
			}
			targetCol = s.Float()
			continue
		}

		if s.Type() == series.String {
			dNames, dCols := dummies(col, s.Records())
			log.Debug().Str("column", col).Int("levels", len(dNames)+1).Msg("dummy encoded column")
			names = append(names, dNames...)
			cols = append(cols, dCols...)
			continue
		}
		names = append(names, col)
		cols = append(cols, s.Float())
	}

	if targetCol == nil {
		return nil, fmt.Errorf("target column %q not found", target)
	}

	features, err := selection.NewFeatureMatrix(names, cols)
	if err != nil {
		return nil, err
	}
	return &Dataset{Name: name, Features: features, Target: targetCol}, nil
}

// dummies one-hot encodes values, dropping the alphabetically first level.
// Columns are named "<col>_<level>".
func dummies(col string, values []string) ([]string, [][]float64) {
	seen := map[string]struct{}{}
	for _, v := range values {
		seen[v] = struct{}{}
	}
	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)

	var names []string
	var cols [][]float64
	for _, level := range levels[1:] {
		c := make([]float64, len(values))
		for i, v := range values {
			if v == level {
				c[i] = 1
			}
		}
		names = append(names, col+"_"+level)
		cols = append(cols, c)
	}
	return names, cols
}
