// Package tabular reads profiles from delimited text tables and writes
// profiles and summaries back out as CSV.
//
// A table holds one row per radius. Columns are found by header name when
// the first row is not numeric, otherwise they are taken positionally as
// radius, count and an optional length.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/sholl/internal/fsutil"
	"github.com/banshee-data/sholl/internal/sholl"
	"github.com/banshee-data/sholl/internal/sholl/stats"
)

var (
	// ErrNoData is returned when a table has no data rows.
	ErrNoData = errors.New("table has no data rows")
	// ErrMissingColumn is returned when a header lacks a radius or count column.
	ErrMissingColumn = errors.New("missing table column")
)

var (
	radiusHeaders = []string{"radius", "radii", "distance", "r"}
	countHeaders  = []string{"count", "counts", "intersections", "inters.", "n", "value"}
	lengthHeaders = []string{"length", "lengths", "arc length"}
)

type columns struct {
	radius, count, length int
}

// ReadProfile parses a table into a frozen profile whose source is "table".
// comma selects the delimiter; 0 means ','. Lines starting with '#' are
// skipped. Counts may be NaN.
func ReadProfile(r io.Reader, comma rune) (*sholl.Profile, error) {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	cols := columns{radius: 0, count: 1, length: -1}
	if !numeric(records[0]) {
		if cols, err = headerColumns(records[0]); err != nil {
			return nil, err
		}
		records = records[1:]
	} else if len(records[0]) > 2 {
		cols.length = 2
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	p := sholl.NewProfile()
	for i, rec := range records {
		e, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := p.Add(e); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	p.SetProperty(sholl.KeySource, sholl.SourceTable)
	p.Freeze()
	return p, nil
}

// LoadProfile reads a table from path. Files ending in .tsv or .txt are
// tab-delimited.
func LoadProfile(fsys fsutil.FileSystem, path string) (*sholl.Profile, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	comma := ','
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		comma = '\t'
	}
	p, err := ReadProfile(f, comma)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.SetID(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	return p, nil
}

func numeric(rec []string) bool {
	for _, f := range rec {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			return false
		}
	}
	return len(rec) > 0
}

func headerColumns(header []string) (columns, error) {
	cols := columns{radius: -1, count: -1, length: -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if j := strings.IndexAny(h, "(["); j > 0 {
			h = strings.TrimSpace(h[:j]) // "Radius (µm)"
		}
		switch {
		case cols.radius < 0 && contains(radiusHeaders, h):
			cols.radius = i
		case cols.count < 0 && contains(countHeaders, h):
			cols.count = i
		case cols.length < 0 && contains(lengthHeaders, h):
			cols.length = i
		}
	}
	if cols.radius < 0 {
		return cols, fmt.Errorf("%w: radius in %v", ErrMissingColumn, header)
	}
	if cols.count < 0 {
		return cols, fmt.Errorf("%w: count in %v", ErrMissingColumn, header)
	}
	return cols, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func parseRow(rec []string, cols columns) (sholl.Entry, error) {
	field := func(i int) (float64, error) {
		if i >= len(rec) {
			return 0, fmt.Errorf("%w: column %d", ErrMissingColumn, i+1)
		}
		return strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	}
	var e sholl.Entry
	var err error
	if e.Radius, err = field(cols.radius); err != nil {
		return e, err
	}
	if e.Count, err = field(cols.count); err != nil {
		return e, err
	}
	if cols.length >= 0 && cols.length < len(rec) {
		if e.Length, err = field(cols.length); err != nil {
			return e, err
		}
	}
	return e, nil
}

// WriteProfile writes radius, count and length columns.
func WriteProfile(w io.Writer, p *sholl.Profile) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"radius", "count", "length"}); err != nil {
		return err
	}
	for _, e := range p.Entries() {
		row := []string{formatFloat(e.Radius), formatFloat(e.Count), formatFloat(e.Length)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFit writes the sampled and fitted series of a normalized fit, one
// row per radius.
func WriteFit(w io.Writer, ns *stats.NormalizedStats) error {
	cw := csv.NewWriter(w)
	xs, ys, fit := ns.XValues(), ns.YValues(), ns.FitYValues()
	header := []string{"radius", "x", "log_normalized", "fit"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, r := range ns.Radii() {
		row := []string{formatFloat(r), formatFloat(xs[i]), formatFloat(ys[i]), formatFloat(fit[i])}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaries writes one "profile,kind,metric,value" row per metric.
func WriteSummaries(w io.Writer, id string, sums ...stats.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"profile", "kind", "metric", "value"}); err != nil {
		return err
	}
	for _, s := range sums {
		for _, m := range s.Metrics {
			if err := cw.Write([]string{id, s.Kind.String(), m.Label, formatFloat(m.Value)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
