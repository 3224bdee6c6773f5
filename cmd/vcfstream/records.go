package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vcfstream/internal/output"
	"github.com/inodb/vcfstream/internal/vcf"
)

func newRecordsCmd() *cobra.Command {
	var (
		outputFile string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "records <input-file>",
		Short: "Write decoded VCF records as tab-delimited text",
		Long: `Decode a VCF file and write one row per record with the alleles, quality
and one genotype column per sample. Use '-' to read plain text from stdin.`,
		Example: `  vcfstream records input.vcf.gz
  vcfstream records -o genotypes.tsv input.vcf
  cat input.vcf | vcfstream records -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, closeOut, err := openOutput(cmd, outputFile)
			if err != nil {
				return err
			}
			defer closeOut()
			return runRecords(args[0], out, strict)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Stop at the first malformed line")

	return cmd
}

func runRecords(inputPath string, out io.Writer, strict bool) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts, err := sourceOptions()
	if err != nil {
		return err
	}

	it, err := vcf.Open(inputPath, opts...)
	if err != nil {
		return err
	}
	defer it.Close()
	it.SetLogger(logger)

	var (
		w       *output.RecordWriter
		written int
		skipped int
	)
	for rec, err := range it.All() {
		if err != nil {
			if strict || vcf.IsFatal(err) {
				return err
			}
			logger.Warn("skipping line", zap.Int("line", it.LineNumber()), zap.Error(err))
			skipped++
			continue
		}
		if w == nil {
			w = output.NewRecordWriter(out, it.Samples())
			if err := w.WriteHeader(); err != nil {
				return fmt.Errorf("writing header: %w", err)
			}
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		written++
	}

	if w == nil {
		w = output.NewRecordWriter(out, it.Samples())
		if err := w.WriteHeader(); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}

	logger.Info("records written",
		zap.String("input", inputPath),
		zap.Int("records", written),
		zap.Int("skipped", skipped))
	return nil
}

// openOutput returns the command's stdout when path is empty, otherwise a
// newly created file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}
