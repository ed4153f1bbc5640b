package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kari1998/loan-default-prediction/pkg/errors"
)

// ReadCSV parses a CSV stream with a header row. A column is numeric when
// every non-empty cell parses as a float; otherwise it is categorical.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(records) == 0 {
		return nil, errors.NewModelError("frame.ReadCSV", "missing header row", errors.ErrEmptyData)
	}
	header := records[0]
	rows := records[1:]

	cols := make([]*Series, len(header))
	for j, name := range header {
		raw := make([]string, len(rows))
		for i, rec := range rows {
			raw[i] = strings.TrimSpace(rec[j])
		}
		if nums, ok := parseNumeric(raw); ok {
			cols[j] = NewNumeric(name, nums)
		} else {
			cols[j] = NewCategorical(name, raw)
		}
	}
	return New(cols...)
}

func parseNumeric(raw []string) ([]float64, bool) {
	out := make([]float64, len(raw))
	for i, s := range raw {
		if s == "" || strings.EqualFold(s, "nan") {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// ReadCSVFile reads a CSV file from disk.
func ReadCSVFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	fr, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return fr, nil
}

// WriteCSV writes the frame with a header row. Missing values are empty.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns()); err != nil {
		return errors.Wrap(err, "write header")
	}
	rec := make([]string, len(f.cols))
	for i := 0; i < f.NRows(); i++ {
		for j, c := range f.cols {
			rec[j] = c.Value(i)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the frame to path, creating parent directories.
func (f *Frame) WriteCSVFile(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := f.WriteCSV(file); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
