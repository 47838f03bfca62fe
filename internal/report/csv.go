// Package report writes estimation tables as CSV and ships them to S3.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"wskdf/internal/estimate"
)

var header = []string{
	"RunID", "Source", "Bits", "Threads", "AvgTimeSecs",
	"SystematicExpectedSecs", "SystematicWorstSecs",
	"RandomExpectedSecs", "Random99thSecs", "Random999thSecs",
	"SystematicWorst", "RandomExpected",
}

// Report is one estimation table and the inputs it was computed from.
type Report struct {
	RunID   string
	Source  string // "benchmark" or "estimation"
	Threads int
	AvgSecs float64
	Rows    []estimate.Row
}

func (r Report) records() [][]string {
	out := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, []string{
			r.RunID, r.Source, strconv.Itoa(row.Bits), strconv.Itoa(r.Threads),
			fmt.Sprintf("%.6f", r.AvgSecs),
			fmt.Sprintf("%.6f", row.SystematicExpectedSecs),
			fmt.Sprintf("%.6f", row.SystematicWorstSecs),
			fmt.Sprintf("%.6f", row.RandomExpectedSecs),
			fmt.Sprintf("%.6f", row.Random99thSecs),
			fmt.Sprintf("%.6f", row.Random999thSecs),
			estimate.Pretty(row.SystematicWorstSecs),
			estimate.Pretty(row.RandomExpectedSecs),
		})
	}
	return out
}

func WriteCSV(w io.Writer, r Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	if err := writer.WriteAll(r.records()); err != nil {
		return errors.Wrap(err, "failed to write rows")
	}
	return nil
}

// SaveCSV writes r to fileName, which must not exist yet.
func SaveCSV(fileName string, r Report) error {
	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s", fileName)
	}
	if err := WriteCSV(file, r); err != nil {
		file.Close()
		return errors.Wrapf(err, "failed to write %s", fileName)
	}
	return errors.Wrapf(file.Close(), "failed to close %s", fileName)
}
