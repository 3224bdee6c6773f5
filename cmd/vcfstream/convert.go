package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vcfstream/internal/duckdb"
	"github.com/inodb/vcfstream/internal/vcf"
)

func newConvertCmd() *cobra.Command {
	var (
		parquetPath string
		strict      bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "convert <input-file>",
		Short: "Load decoded VCF records into DuckDB",
		Long: `Decode a VCF file into the DuckDB variants table, one row per record with
the alleles, quality and flattened genotype matrix. Files already loaded with
the same size and modification time are skipped unless --force is given.`,
		Example: `  vcfstream convert input.vcf.gz
  vcfstream convert --parquet variants.parquet input.vcf.gz
  vcfstream convert --db /tmp/study.duckdb --strict input.vcf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), args[0], parquetPath, strict, force)
		},
	}

	cmd.Flags().StringVar(&parquetPath, "parquet", "", "Also export the file's rows to this Parquet file")
	cmd.Flags().BoolVar(&strict, "strict", false, "Abort at the first malformed line")
	cmd.Flags().BoolVar(&force, "force", false, "Reload even if the file is already in the database")

	return cmd
}

func runConvert(ctx context.Context, inputPath, parquetPath string, strict, force bool) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	key, fp, err := sourceKey(inputPath)
	if err != nil {
		return err
	}

	loaded := false
	if fp != nil && !force {
		loaded, err = store.SourceCurrent(*fp, duckdb.TableVariants)
		if err != nil {
			return err
		}
	}

	if loaded {
		logger.Info("file already loaded, skipping decode", zap.String("input", key))
	} else if err := loadVariants(ctx, store, inputPath, key, fp, strict, logger); err != nil {
		return err
	}

	if parquetPath != "" {
		if err := store.ExportParquet(ctx, duckdb.TableVariants, key, parquetPath); err != nil {
			return err
		}
		logger.Info("exported parquet", zap.String("output", parquetPath))
	}
	return nil
}

func loadVariants(ctx context.Context, store *duckdb.Store, inputPath, key string, fp *duckdb.FileFingerprint, strict bool, logger *zap.Logger) error {
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

	if err := store.DeleteSource(duckdb.TableVariants, key); err != nil {
		return err
	}

	w, err := store.NewVariantWriter(ctx, key)
	if err != nil {
		return err
	}

	skipped := 0
	for rec, err := range it.All() {
		if err != nil {
			if strict || vcf.IsFatal(err) {
				w.Close()
				store.DeleteSource(duckdb.TableVariants, key)
				return err
			}
			logger.Warn("skipping line", zap.Int("line", it.LineNumber()), zap.Error(err))
			skipped++
			continue
		}
		if err := w.Write(rec); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	if fp != nil {
		if err := store.RecordSource(*fp, duckdb.TableVariants, w.Rows()); err != nil {
			return err
		}
	}

	logger.Info("conversion complete",
		zap.String("input", key),
		zap.Int64("records", w.Rows()),
		zap.Int("skipped", skipped),
		zap.Int("samples", it.NumSamples()),
		zap.Int("ploidy", it.Ploidy()),
		zap.String("db", store.Path()))
	return nil
}

// openStore opens the configured DuckDB database.
func openStore() (*duckdb.Store, error) {
	path := viper.GetString("duckdb.path")
	store, err := duckdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return store, nil
}

// sourceKey returns the name rows from inputPath are stored under, and the
// file's fingerprint when it is a regular file.
func sourceKey(inputPath string) (string, *duckdb.FileFingerprint, error) {
	if inputPath == "-" {
		return "stdin", nil, nil
	}
	abs, err := filepath.Abs(inputPath)
	if err != nil {
		return "", nil, fmt.Errorf("resolving %s: %w", inputPath, err)
	}
	fp, err := duckdb.StatFile(abs)
	if err != nil {
		return "", nil, err
	}
	return abs, &fp, nil
}
