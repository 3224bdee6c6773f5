package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/inodb/vcfstream/internal/vcf"
)

// VariantWriter appends decoded VCF records to the variants table.
type VariantWriter struct {
	*tableWriter
	source string
}

// NewVariantWriter opens an appender on the variants table. Every row is
// tagged with source.
func (s *Store) NewVariantWriter(ctx context.Context, source string) (*VariantWriter, error) {
	tw, err := s.newTableWriter(ctx, TableVariants)
	if err != nil {
		return nil, err
	}
	return &VariantWriter{tableWriter: tw, source: source}, nil
}

// Write appends one record. A missing quality is stored as NULL.
func (w *VariantWriter) Write(rec *vcf.Record) error {
	var qual any
	if rec.HasQual() {
		qual = rec.Qual
	}
	genotypes := rec.Genotypes
	if genotypes == nil {
		genotypes = []int32{}
	}
	return w.appendRow(w.source, rec.Chrom, int64(rec.Pos), rec.Alleles, qual,
		int32(rec.Ploidy), genotypes)
}

// WriteRecords batch-inserts records using the Appender API.
func (s *Store) WriteRecords(source string, records []*vcf.Record) error {
	if len(records) == 0 {
		return nil
	}

	w, err := s.NewVariantWriter(context.Background(), source)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// LookupVariants returns the stored records at a position, in insertion order.
func (s *Store) LookupVariants(chrom string, pos uint32) ([]*vcf.Record, error) {
	rows, err := s.db.Query(`SELECT chrom, pos, alleles, qual, ploidy, genotypes
		FROM variants WHERE chrom=? AND pos=?`, chrom, int64(pos))
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	var records []*vcf.Record
	for rows.Next() {
		var (
			rec       vcf.Record
			storedPos int64
			alleles   any
			qual      sql.NullFloat64
			ploidy    int32
			genotypes any
		)
		if err := rows.Scan(&rec.Chrom, &storedPos, &alleles, &qual, &ploidy, &genotypes); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		rec.Pos = uint32(storedPos)
		rec.Ploidy = int(ploidy)
		rec.Qual = float32(math.NaN())
		if qual.Valid {
			rec.Qual = float32(qual.Float64)
		}
		for _, a := range listValues(alleles) {
			allele, _ := a.(string)
			rec.Alleles = append(rec.Alleles, allele)
		}
		for _, g := range listValues(genotypes) {
			rec.Genotypes = append(rec.Genotypes, toInt32(g))
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return records, nil
}

func listValues(v any) []any {
	list, _ := v.([]any)
	return list
}

func toInt32(v any) int32 {
	switch n := v.(type) {
	case int32:
		return n
	case int64:
		return int32(n)
	case int:
		return int32(n)
	}
	return vcf.MissingAllele
}
