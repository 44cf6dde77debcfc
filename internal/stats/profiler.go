package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/catalogsync/catalogsync/internal/config"
	"github.com/catalogsync/catalogsync/internal/schema"
	"github.com/catalogsync/catalogsync/internal/source"
	"github.com/catalogsync/catalogsync/internal/urn"
)

// Profiler builds datasetProfile aspects from the source database. Each
// query stage runs on its own scoped connection.
type Profiler struct {
	Open         source.Opener
	Source       *config.SourceConfig
	MaxDistinct  int
	SampleValues bool
	Logger       *slog.Logger
	Now          func() time.Time
}

// Profile computes statistics for the table behind ds. Sample values are
// collected only for sampleFields, and only when enabled.
func (p *Profiler) Profile(ctx context.Context, ds urn.Dataset, sampleFields []string) (*schema.DatasetProfile, error) {
	schemaName, table := ds.Schema(), ds.Table()

	var ranges []MinMax
	err := source.WithReader(ctx, p.Open, p.Source, func(r source.Reader) error {
		cols, err := ColumnInfo(ctx, r, schemaName, table)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			return fmt.Errorf("no columns found for %s.%s", schemaName, table)
		}
		ranges, err = ColumnMinMax(ctx, r, schemaName, table, cols)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("profiling %s: %w", ds, err)
	}

	samples := make(map[string][]string)
	if p.SampleValues {
		known := make(map[string]bool, len(ranges))
		for _, mm := range ranges {
			known[mm.Column] = true
		}
		for _, field := range sampleFields {
			if !known[field] {
				continue
			}
			err := source.WithReader(ctx, p.Open, p.Source, func(r source.Reader) error {
				vals, err := SampleValues(ctx, r, schemaName, table, field, p.MaxDistinct, p.Logger)
				if err != nil {
					return err
				}
				samples[field] = vals
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("sampling %s.%s: %w", table, field, err)
			}
		}
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	profile := &schema.DatasetProfile{
		TimestampMillis: now().UnixMilli(),
		FieldProfiles:   make([]schema.FieldProfile, 0, len(ranges)),
	}
	for _, mm := range ranges {
		profile.FieldProfiles = append(profile.FieldProfiles, schema.FieldProfile{
			FieldPath:    mm.Column,
			Min:          mm.Min,
			Max:          mm.Max,
			SampleValues: samples[mm.Column],
		})
	}

	p.Logger.Info("profiled dataset", "urn", ds.String(), "columns", len(ranges), "sampled", len(samples))
	return profile, nil
}
