package subsample

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// rowTSV is the on-disk representation of a Row.  NaN values survive the
// round trip as literal NaN fields.
type rowTSV struct {
	ID          string  `tsv:"ID"`
	Count       float64 `tsv:"COUNT"`
	Depth       int64   `tsv:"DEPTH"`
	Proportion  float64 `tsv:"PROPORTION"`
	Replication int     `tsv:"REPLICATION"`
	Method      string  `tsv:"METHOD"`
	Coefficient float64 `tsv:"COEFFICIENT"`
	PValue      float64 `tsv:"PVALUE"`
	QValue      float64 `tsv:"QVALUE"`
	Extra       string  `tsv:"EXTRA"`
}

// Write serializes the store as TSV.  The first line is a comment carrying
// the run seed, so the metadata survives the round trip.
func (s *Store) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "# seed=%d\n", s.seed); err != nil {
		return err
	}
	tw := tsv.NewRowWriter(bw)
	for _, row := range s.Rows {
		r := rowTSV{
			ID:          row.ID,
			Count:       row.Count,
			Depth:       row.Depth,
			Proportion:  row.Proportion,
			Replication: row.Replication,
			Method:      row.Method,
			Coefficient: row.Coefficient,
			PValue:      row.PValue,
			QValue:      row.QValue,
			Extra:       formatExtra(row.Extra),
		}
		if err := tw.Write(&r); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return bw.Flush()
}

// Read deserializes a store written by Write.
func Read(r io.Reader) (*Store, error) {
	br := bufio.NewReader(r)
	seed, err := readSeedComment(br)
	if err != nil {
		return nil, err
	}
	s := &Store{}
	if err := s.SetSeed(seed); err != nil {
		return nil, err
	}
	tr := tsv.NewReader(br)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	for {
		var row rowTSV
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(err, "reading result store")
		}
		extra, err := parseExtra(row.Extra)
		if err != nil {
			return nil, errors.E(err, "reading result store")
		}
		s.Rows = append(s.Rows, Row{
			ID:          row.ID,
			Count:       row.Count,
			Depth:       row.Depth,
			Proportion:  row.Proportion,
			Replication: row.Replication,
			Method:      row.Method,
			Coefficient: row.Coefficient,
			PValue:      row.PValue,
			QValue:      row.QValue,
			Extra:       extra,
		})
	}
	return s, nil
}

// readSeedComment parses the leading "# seed=N" metadata line.
func readSeedComment(br *bufio.Reader) (int64, error) {
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return 0, err
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
	if !strings.HasPrefix(line, "seed=") {
		return 0, fmt.Errorf("store is missing the seed metadata line, got %q", line)
	}
	return strconv.ParseInt(strings.TrimPrefix(line, "seed="), 10, 64)
}

// WriteFile writes the store to a path understood by base/file (local or
// remote).
func (s *Store) WriteFile(ctx context.Context, path string) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "creating result store:", path)
	}
	if err := s.Write(out.Writer(ctx)); err != nil {
		_ = out.Close(ctx)
		return errors.E(err, "writing result store:", path)
	}
	return out.Close(ctx)
}

// ReadFile reads a store written by WriteFile.
func ReadFile(ctx context.Context, path string) (*Store, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "opening result store:", path)
	}
	defer in.Close(ctx) // nolint: errcheck
	return Read(in.Reader(ctx))
}
