package engine

import (
	"context"

	"github.com/catalogsync/catalogsync/internal/report"
	"github.com/catalogsync/catalogsync/internal/schema"
	"github.com/catalogsync/catalogsync/internal/stats"
	"github.com/catalogsync/catalogsync/internal/urn"
)

func (e *Engine) profiler(samples bool) *stats.Profiler {
	return &stats.Profiler{
		Open:         e.Open,
		Source:       &e.Config.Source,
		MaxDistinct:  e.Config.Stats.MaxDistinct,
		SampleValues: samples,
		Logger:       e.Logger,
		Now:          e.now,
	}
}

// SyncStats profiles the table behind every dataset of domain and writes a
// datasetProfile aspect for each. With samples set, distinct values are
// collected for string fields. Profiling errors abort the run.
func (e *Engine) SyncStats(ctx context.Context, domain string, samples bool) (*report.Run, error) {
	if domain == "" {
		domain = e.Config.Stats.Domain
	}
	samples = samples || e.Config.Stats.SampleValues
	log := e.Logger.With("domain", domain)
	run := report.NewRun("stats", domain)

	urns, err := e.Catalog.ListDatasetURNs(ctx, domain)
	if err != nil {
		return nil, &RunError{Phase: PhaseList, Err: err}
	}
	log.Info("listed datasets", "count", len(urns))

	prof := e.profiler(samples)
	for _, u := range urns {
		ds, err := urn.ParseDataset(u)
		if err != nil {
			if decide(PhaseParse, err) != Skip {
				return nil, &RunError{Phase: PhaseParse, URN: u, Err: err}
			}
			log.Warn("skipping dataset", "urn", u, "op", PhaseParse, "error", err)
			run.Add(report.DatasetResult{URN: u, Status: report.StatusSkipped, Error: err.Error()})
			continue
		}

		var stringFields []string
		if samples {
			stringFields, err = e.stringFields(ctx, u)
			if err != nil {
				return nil, err
			}
		}

		profile, err := prof.Profile(ctx, ds, stringFields)
		if err != nil {
			return nil, &RunError{Phase: PhaseProfile, URN: u, Err: err}
		}

		res := report.DatasetResult{URN: u, Table: ds.Table(), Fields: len(profile.FieldProfiles)}
		if err := e.Catalog.WriteDatasetProfile(ctx, u, profile); err != nil {
			if decide(PhaseEmit, err) != Continue {
				return nil, &RunError{Phase: PhaseEmit, URN: u, Err: err}
			}
			log.Error("writing dataset profile failed", "urn", u, "table", ds.Table(), "op", PhaseEmit, "error", err)
			res.Status = report.StatusFailed
			res.Error = err.Error()
			run.Add(res)
			continue
		}
		res.Status = report.StatusEmitted
		run.Add(res)
	}

	run.Finish()
	log.Info("stats sync finished", "summary", run.Summary())
	return run, nil
}

// stringFields returns the paths of the string-typed fields of a dataset.
func (e *Engine) stringFields(ctx context.Context, datasetURN string) ([]string, error) {
	snap, err := e.Catalog.FetchSnapshot(ctx, datasetURN)
	if err != nil {
		return nil, &RunError{Phase: PhaseFetch, URN: datasetURN, Err: err}
	}
	raw, err := snap.SchemaMetadata()
	if err != nil {
		return nil, &RunError{Phase: PhaseFetch, URN: datasetURN, Err: err}
	}
	md, err := raw.Decode()
	if err != nil {
		return nil, &RunError{Phase: PhaseDecode, URN: datasetURN, Err: err}
	}

	var paths []string
	for _, f := range md.Fields {
		if f.Type == schema.FieldTypeString {
			paths = append(paths, f.FieldPath)
		}
	}
	return paths, nil
}
