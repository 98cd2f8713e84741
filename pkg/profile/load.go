package profile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"
	"gopkg.in/yaml.v3"
)

// ErrBadTable is returned for malformed calibration tables.
var ErrBadTable = errors.New("profile: bad correction table")

// LoadCorrectionTable reads a calibration table, choosing the format by
// extension: .yaml/.yml, .xlsx, anything else as delimited text.
func LoadCorrectionTable(path string) (*CorrectionTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadCorrectionXLSX(path)
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("profile: %w", err)
		}
		defer f.Close()
		return ReadCorrectionYAML(f)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("profile: %w", err)
		}
		defer f.Close()
		return ReadCorrectionText(f)
	}
}

// ReadCorrectionText parses one sample per line as four numbers
// "design_w design_h measured_w measured_h", separated by commas or
// whitespace. Blank lines, # comments and a non-numeric header line are
// skipped.
func ReadCorrectionText(r io.Reader) (*CorrectionTable, error) {
	t := &CorrectionTable{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t'
		})
		s, err := parseSample(fields)
		if err != nil {
			if line == 1 && len(t.Samples) == 0 {
				continue
			}
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTable, line, err)
		}
		t.Samples = append(t.Samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("profile: read table: %w", err)
	}
	return t, nil
}

// ReadCorrectionYAML parses a table of the form
//
//	samples:
//	  - design: [0.5, 0.5]
//	    measured: [0.45, 0.47]
func ReadCorrectionYAML(r io.Reader) (*CorrectionTable, error) {
	t := &CorrectionTable{}
	if err := yaml.NewDecoder(r).Decode(t); err != nil {
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBadTable, err)
	}
	return t, nil
}

// LoadCorrectionXLSX reads the first sheet of a workbook. Each row holds
// the four sample values in its first four cells; a leading header row is
// skipped.
func LoadCorrectionXLSX(path string) (*CorrectionTable, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: open %s: %w", path, err)
	}
	if len(f.Sheets) == 0 {
		return nil, fmt.Errorf("%w: %s has no sheets", ErrBadTable, path)
	}
	t := &CorrectionTable{}
	for i, row := range f.Sheets[0].Rows {
		if row == nil || len(row.Cells) == 0 {
			continue
		}
		fields := make([]string, 0, 4)
		for _, c := range row.Cells {
			if c == nil {
				continue
			}
			fields = append(fields, strings.TrimSpace(c.Value))
		}
		s, err := parseSample(fields)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrBadTable, path, i+1, err)
		}
		t.Samples = append(t.Samples, s)
	}
	return t, nil
}

func parseSample(fields []string) (Sample, error) {
	if len(fields) < 4 {
		return Sample{}, fmt.Errorf("want 4 values, got %d", len(fields))
	}
	var v [4]float64
	for k := 0; k < 4; k++ {
		x, err := strconv.ParseFloat(fields[k], 64)
		if err != nil {
			return Sample{}, err
		}
		v[k] = x
	}
	return Sample{Design: [2]float64{v[0], v[1]}, Measured: [2]float64{v[2], v[3]}}, nil
}
