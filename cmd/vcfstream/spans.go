package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vcfstream/internal/duckdb"
	"github.com/inodb/vcfstream/internal/output"
	"github.com/inodb/vcfstream/internal/region"
	"github.com/inodb/vcfstream/internal/vcf"
)

func newSpansCmd() *cobra.Command {
	var (
		parquetPath string
		outputFile  string
		summary     bool
	)

	cmd := &cobra.Command{
		Use:   "spans <input-file>",
		Short: "Extract variant spans from a gVCF",
		Long: `Decode a gVCF, skip invariant <NON_REF>-only lines and store the reference
span of each remaining variant in the DuckDB spans table. With --summary the
spans are only tallied per chromosome and printed.`,
		Example: `  vcfstream spans sample.g.vcf.gz --parquet spans.parquet
  vcfstream spans --summary sample.g.vcf.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if summary {
				out, closeOut, err := openOutput(cmd, outputFile)
				if err != nil {
					return err
				}
				defer closeOut()
				return runSpanSummary(args[0], out)
			}
			return runSpans(cmd.Context(), args[0], parquetPath)
		},
	}

	cmd.Flags().StringVar(&parquetPath, "parquet", "", "Also export the spans to this Parquet file")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Summary output file (default: stdout)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print per-chromosome span totals instead of storing spans")

	return cmd
}

func runSpans(ctx context.Context, inputPath, parquetPath string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts, err := sourceOptions()
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	key, fp, err := sourceKey(inputPath)
	if err != nil {
		return err
	}

	it, err := vcf.OpenGVCF(inputPath, opts...)
	if err != nil {
		return err
	}
	defer it.Close()
	it.SetLogger(logger)

	if err := store.DeleteSource(duckdb.TableSpans, key); err != nil {
		return err
	}
	w, err := store.NewSpanWriter(ctx, key)
	if err != nil {
		return err
	}

	for rec, err := range it.Variants() {
		if err != nil {
			w.Close()
			store.DeleteSource(duckdb.TableSpans, key)
			return err
		}
		start, end, err := rec.Span()
		if err != nil {
			w.Close()
			store.DeleteSource(duckdb.TableSpans, key)
			return fmt.Errorf("line %d: %w", it.LineNumber(), err)
		}
		if err := w.Write(duckdb.Span{Chrom: rec.Chrom, Start: start, End: end}); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	if fp != nil {
		if err := store.RecordSource(*fp, duckdb.TableSpans, w.Rows()); err != nil {
			return err
		}
	}

	logger.Info("spans stored",
		zap.String("input", key),
		zap.Int64("spans", w.Rows()),
		zap.Int("invariant_lines", it.InvariantLines()))

	if parquetPath != "" {
		if err := store.ExportParquet(ctx, duckdb.TableSpans, key, parquetPath); err != nil {
			return err
		}
		logger.Info("exported parquet", zap.String("output", parquetPath))
	}
	return nil
}

type chromSummary struct {
	variants int
	bases    uint64
	first    uint32
	last     uint32
}

func runSpanSummary(inputPath string, out io.Writer) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts, err := sourceOptions()
	if err != nil {
		return err
	}

	it, err := vcf.OpenGVCF(inputPath, opts...)
	if err != nil {
		return err
	}
	defer it.Close()
	it.SetLogger(logger)

	pos, err := vcf.CollectPositions(it)
	if err != nil {
		return err
	}

	summaries := make([]chromSummary, len(pos.Chroms))
	for i := range pos.Len() {
		s := &summaries[pos.ChromIDs[i]]
		end := pos.Starts[i] + pos.Widths[i] - 1
		if s.variants == 0 || pos.Starts[i] < s.first {
			s.first = pos.Starts[i]
		}
		s.last = max(s.last, end)
		s.bases += uint64(pos.Widths[i])
		s.variants++
	}

	tw := output.NewTabWriter(out, "#CHROM", "VARIANTS", "SPAN_BASES", "FIRST", "LAST")
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for id, s := range summaries {
		if err := tw.WriteRow(pos.Chroms[id],
			fmt.Sprint(s.variants), fmt.Sprint(s.bases),
			fmt.Sprint(s.first), fmt.Sprint(s.last)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func newRegionsCmd() *cobra.Command {
	var (
		outputFile string
		store      bool
	)

	cmd := &cobra.Command{
		Use:   "regions <input-file>",
		Short: "Merge neighbouring gVCF variant spans into regions",
		Long: `Decode a gVCF and merge variants whose spans overlap or lie within --gap
bases of each other on the same chromosome. Records are prefetched --window
at a time.`,
		Example: `  vcfstream regions sample.g.vcf.gz
  vcfstream regions --gap 10 --store sample.g.vcf.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, closeOut, err := openOutput(cmd, outputFile)
			if err != nil {
				return err
			}
			defer closeOut()
			return runRegions(args[0], out, store)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().Int("window", region.DefaultWindow, "Records to prefetch into the lookahead buffer")
	cmd.Flags().Uint32("gap", 0, "Maximum distance between spans that are merged")
	cmd.Flags().BoolVar(&store, "store", false, "Also store the regions in the DuckDB regions table")

	viper.BindPFlag("buffer.window", cmd.Flags().Lookup("window"))
	viper.BindPFlag("regions.gap", cmd.Flags().Lookup("gap"))

	return cmd
}

func runRegions(inputPath string, out io.Writer, store bool) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts, err := sourceOptions()
	if err != nil {
		return err
	}

	it, err := vcf.OpenGVCF(inputPath, opts...)
	if err != nil {
		return err
	}
	defer it.Close()
	it.SetLogger(logger)

	m := region.NewMerger(it, viper.GetInt("buffer.window"), viper.GetUint32("regions.gap"))
	m.SetLogger(logger)

	tw := output.NewRegionWriter(out)
	if err := tw.WriteHeader(); err != nil {
		return err
	}

	var regions []region.Region
	for r, err := range m.All() {
		if err != nil {
			return err
		}
		if err := tw.Write(*r); err != nil {
			return err
		}
		if store {
			regions = append(regions, *r)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if store {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		key, fp, err := sourceKey(inputPath)
		if err != nil {
			return err
		}
		if err := db.DeleteSource(duckdb.TableRegions, key); err != nil {
			return err
		}
		if err := db.WriteRegions(key, regions); err != nil {
			return err
		}
		if fp != nil {
			if err := db.RecordSource(*fp, duckdb.TableRegions, int64(len(regions))); err != nil {
				return err
			}
		}
	}

	logger.Info("regions merged",
		zap.String("input", inputPath),
		zap.Int("invariant_lines", it.InvariantLines()))
	return nil
}
