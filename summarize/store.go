package summarize

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

// Row is one summary comparison: a (depth, proportion, method, replication)
// group measured against its oracle.  Metrics are float64 so averaged rows
// keep the same shape; undefined metrics are NaN, while EstFDP and RFDP are
// exactly 0 whenever Significant is 0.
type Row struct {
	Depth       float64 `tsv:"DEPTH"`
	Proportion  float64 `tsv:"PROPORTION"`
	Method      string  `tsv:"METHOD"`
	Replication int     `tsv:"REPLICATION"`
	Significant float64 `tsv:"SIGNIFICANT"`
	Pearson     float64 `tsv:"PEARSON"`
	Spearman    float64 `tsv:"SPEARMAN"`
	Concordance float64 `tsv:"CONCORDANCE"`
	MSE         float64 `tsv:"MSE"`
	EstFDP      float64 `tsv:"ESTFDP"`
	RFDP        float64 `tsv:"RFDP"`
	Percent     float64 `tsv:"PERCENT"`
}

// Store holds summary rows together with the provenance seed of the run they
// derive from and the FDR level they were computed at.  A store is derived
// and stateless: it can be recomputed at any time from the result store and
// an oracle choice.  Averaged rows carry Replication == -1.
type Store struct {
	Rows     []Row
	Seed     int64
	FDRLevel float64
}

// Write serializes the store as TSV with a leading metadata comment carrying
// the seed and FDR level.
func (s *Store) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "# seed=%d fdr_level=%s\n",
		s.Seed, strconv.FormatFloat(s.FDRLevel, 'g', -1, 64)); err != nil {
		return err
	}
	tw := tsv.NewRowWriter(bw)
	for i := range s.Rows {
		if err := tw.Write(&s.Rows[i]); err != nil {
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
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	s := &Store{}
	if _, err := fmt.Sscanf(strings.TrimSpace(line), "# seed=%d fdr_level=%g",
		&s.Seed, &s.FDRLevel); err != nil {
		return nil, errors.E(err, "summary store is missing the metadata line")
	}
	tr := tsv.NewReader(br)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	for {
		var row Row
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(err, "reading summary store")
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// WriteFile writes the store to a path understood by base/file.
func (s *Store) WriteFile(ctx context.Context, path string) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "creating summary store:", path)
	}
	if err := s.Write(out.Writer(ctx)); err != nil {
		_ = out.Close(ctx)
		return errors.E(err, "writing summary store:", path)
	}
	return out.Close(ctx)
}

// ReadFile reads a store written by WriteFile.
func ReadFile(ctx context.Context, path string) (*Store, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "opening summary store:", path)
	}
	defer in.Close(ctx) // nolint: errcheck
	return Read(in.Reader(ctx))
}
