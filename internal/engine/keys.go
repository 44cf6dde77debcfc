package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/catalogsync/catalogsync/internal/keyfacts"
	"github.com/catalogsync/catalogsync/internal/keys"
	"github.com/catalogsync/catalogsync/internal/report"
	"github.com/catalogsync/catalogsync/internal/schema"
	"github.com/catalogsync/catalogsync/internal/urn"
)

// PlannedDataset is the reconciled schemaMetadata of one dataset, ready to
// be written.
type PlannedDataset struct {
	URN      string
	Table    string
	Previous json.RawMessage
	Metadata *schema.SchemaMetadata
}

// Plan is the outcome of key inference over a domain.
type Plan struct {
	Domain   string
	Datasets []PlannedDataset
	Skipped  []report.DatasetResult
}

// KeyPlans returns the reviewable view of the plan.
func (p *Plan) KeyPlans() []schema.KeyPlan {
	plans := make([]schema.KeyPlan, 0, len(p.Datasets))
	for _, d := range p.Datasets {
		plans = append(plans, d.Metadata.Plan(d.URN))
	}
	return plans
}

// Report renders the plan as a run where nothing was written.
func (p *Plan) Report() *report.Run {
	run := report.NewRun("keys", p.Domain)
	run.DryRun = true
	for _, d := range p.Datasets {
		run.Add(plannedResult(d, report.StatusPlanned))
	}
	for _, s := range p.Skipped {
		run.Add(s)
	}
	run.Finish()
	return run
}

func plannedResult(d PlannedDataset, status report.Status) report.DatasetResult {
	return report.DatasetResult{
		URN:         d.URN,
		Table:       d.Table,
		Status:      status,
		PrimaryKeys: len(d.Metadata.PrimaryKeys),
		ForeignKeys: len(d.Metadata.ForeignKeys),
		Fields:      len(d.Metadata.Fields),
	}
}

// keyTarget says where foreign datasets are looked up.
func (e *Engine) keyTarget() keys.Target {
	return keys.Target{
		Platform: e.Config.Catalog.Platform,
		Server:   e.Config.Keys.Server,
		Database: e.Config.Keys.Database,
		Schema:   e.Config.Keys.Schema,
		Env:      e.Config.Keys.ForeignEnv,
	}
}

func (e *Engine) keysDomain(domain string) string {
	if domain != "" {
		return domain
	}
	return e.Config.Keys.Domain
}

// keySession holds the state shared by every dataset of one key run.
type keySession struct {
	domain string
	urns   []string
	index  *keys.Index
	target keys.Target
	log    *slog.Logger
}

// openKeySession lists the datasets of domain and reads the key fact table
// once.
func (e *Engine) openKeySession(ctx context.Context, domain string) (*keySession, error) {
	domain = e.keysDomain(domain)
	log := e.Logger.With("domain", domain)

	urns, err := e.Catalog.ListDatasetURNs(ctx, domain)
	if err != nil {
		return nil, &RunError{Phase: PhaseList, Err: err}
	}
	log.Info("listed datasets", "count", len(urns))

	script, err := keyfacts.LoadScript(e.Config.Source.KeyScript, e.Config.Source.Type)
	if err != nil {
		return nil, &RunError{Phase: PhaseFacts, Err: err}
	}
	facts, err := keyfacts.Fetch(ctx, e.Open, &e.Config.Source, script, e.Logger)
	if err != nil {
		return nil, &RunError{Phase: PhaseFacts, Err: err}
	}

	return &keySession{
		domain: domain,
		urns:   urns,
		index:  keys.NewIndex(facts),
		target: e.keyTarget(),
		log:    log,
	}, nil
}

// prepareDataset resolves, fetches, infers and reconciles one dataset. A
// skipped dataset returns its result and a nil plan.
func (e *Engine) prepareDataset(ctx context.Context, s *keySession, u string) (*PlannedDataset, *report.DatasetResult, error) {
	table, err := urn.TableName(u)
	if err != nil {
		if decide(PhaseParse, err) != Skip {
			return nil, nil, &RunError{Phase: PhaseParse, URN: u, Err: err}
		}
		s.log.Warn("skipping dataset", "urn", u, "op", PhaseParse, "error", err)
		return nil, &report.DatasetResult{URN: u, Status: report.StatusSkipped, Error: err.Error()}, nil
	}
	e.checkForeignEnv(u, s.target.Env)

	snap, err := e.Catalog.FetchSnapshot(ctx, u)
	if err != nil {
		return nil, nil, &RunError{Phase: PhaseFetch, URN: u, Err: err}
	}
	raw, err := snap.SchemaMetadata()
	if err != nil {
		return nil, nil, &RunError{Phase: PhaseFetch, URN: u, Err: err}
	}

	inferred := s.index.InferTable(table, raw.FieldPaths(), s.target)

	decoded, err := raw.Decode()
	if err != nil {
		return nil, nil, &RunError{Phase: PhaseDecode, URN: u, Err: err}
	}

	previous, _ := snap.RawAspect("schemaMetadata")
	md := schema.Reconcile(u, decoded, inferred.PrimaryKeys, inferred.ForeignKeys)

	s.log.Debug("inferred keys", "urn", u, "table", table,
		"primary_keys", len(md.PrimaryKeys), "foreign_keys", len(md.ForeignKeys))
	return &PlannedDataset{URN: u, Table: table, Previous: previous, Metadata: md}, nil, nil
}

// applyDataset archives the previous aspect and writes the planned one.
// Write failures are recorded in run and do not stop the caller.
func (e *Engine) applyDataset(ctx context.Context, log *slog.Logger, run *report.Run, d *PlannedDataset) error {
	if len(d.Previous) > 0 {
		if err := e.Archive.Archive(ctx, d.URN, "schemaMetadata", d.Previous); err != nil {
			if decide(PhaseArchive, err) != Continue {
				return &RunError{Phase: PhaseArchive, URN: d.URN, Err: err}
			}
			log.Warn("archiving previous schema failed", "urn", d.URN, "op", PhaseArchive, "error", err)
		}
	}

	if err := e.Catalog.WriteSchemaMetadata(ctx, d.URN, d.Metadata); err != nil {
		if decide(PhaseEmit, err) != Continue {
			return &RunError{Phase: PhaseEmit, URN: d.URN, Err: err}
		}
		log.Error("writing schema metadata failed", "urn", d.URN, "table", d.Table, "op", PhaseEmit, "error", err)
		res := plannedResult(*d, report.StatusFailed)
		res.Error = err.Error()
		run.Add(res)
		return nil
	}

	log.Info("wrote keys", "urn", d.URN, "table", d.Table,
		"primary_keys", len(d.Metadata.PrimaryKeys), "foreign_keys", len(d.Metadata.ForeignKeys))
	run.Add(plannedResult(*d, report.StatusEmitted))
	return nil
}

// PlanKeys infers primary and foreign keys for every dataset in domain and
// reconciles them into schemaMetadata aspects without writing anything.
func (e *Engine) PlanKeys(ctx context.Context, domain string) (*Plan, error) {
	s, err := e.openKeySession(ctx, domain)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Domain: s.domain}
	for _, u := range s.urns {
		d, skipped, err := e.prepareDataset(ctx, s, u)
		if err != nil {
			return nil, err
		}
		if skipped != nil {
			plan.Skipped = append(plan.Skipped, *skipped)
			continue
		}
		plan.Datasets = append(plan.Datasets, *d)
	}

	s.log.Info("planned key sync", "datasets", len(plan.Datasets), "skipped", len(plan.Skipped), "facts", s.index.Len())
	return plan, nil
}

// ApplyKeys writes every planned aspect. The previous aspect is archived
// first when an archive is configured. Write failures are recorded and the
// loop goes on.
func (e *Engine) ApplyKeys(ctx context.Context, plan *Plan) (*report.Run, error) {
	run := report.NewRun("keys", plan.Domain)
	log := e.Logger.With("domain", plan.Domain)

	for i := range plan.Datasets {
		if err := e.applyDataset(ctx, log, run, &plan.Datasets[i]); err != nil {
			return nil, err
		}
	}
	for _, s := range plan.Skipped {
		run.Add(s)
	}
	run.Finish()
	log.Info("key sync finished", "summary", run.Summary())
	return run, nil
}

// SyncKeys processes the datasets of domain one at a time, writing each
// before the next is fetched. Writes are not undone when a later dataset
// fails fatally.
func (e *Engine) SyncKeys(ctx context.Context, domain string) (*report.Run, error) {
	s, err := e.openKeySession(ctx, domain)
	if err != nil {
		return nil, err
	}

	run := report.NewRun("keys", s.domain)
	for _, u := range s.urns {
		d, skipped, err := e.prepareDataset(ctx, s, u)
		if err != nil {
			return nil, err
		}
		if skipped != nil {
			run.Add(*skipped)
			continue
		}
		if err := e.applyDataset(ctx, s.log, run, d); err != nil {
			return nil, err
		}
	}
	run.Finish()
	s.log.Info("key sync finished", "summary", run.Summary(), "facts", s.index.Len())
	return run, nil
}

// checkForeignEnv warns when foreign datasets are resolved in a different
// environment than the dataset itself.
func (e *Engine) checkForeignEnv(datasetURN, foreignEnv string) {
	ds, err := urn.ParseDataset(datasetURN)
	if err != nil {
		return
	}
	if ds.Env != foreignEnv {
		e.Logger.Warn("foreign keys point to another environment",
			"urn", datasetURN, "dataset_env", ds.Env, "foreign_env", foreignEnv)
	}
}
