package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the outcome of one dataset in a run.
type Status string

const (
	StatusEmitted Status = "emitted"
	StatusPlanned Status = "planned"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Run is the report of one sync run.
type Run struct {
	Command     string          `json:"command" yaml:"command"`
	Domain      string          `json:"domain,omitempty" yaml:"domain,omitempty"`
	DryRun      bool            `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	StartedAt   time.Time       `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time       `json:"completed_at" yaml:"completed_at"`
	Datasets    []DatasetResult `json:"datasets" yaml:"datasets"`
}

// DatasetResult holds the outcome for a single dataset.
type DatasetResult struct {
	URN         string `json:"urn" yaml:"urn"`
	Table       string `json:"table,omitempty" yaml:"table,omitempty"`
	Status      Status `json:"status" yaml:"status"`
	PrimaryKeys int    `json:"primary_keys,omitempty" yaml:"primary_keys,omitempty"`
	ForeignKeys int    `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	Fields      int    `json:"fields,omitempty" yaml:"fields,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewRun starts a report for command.
func NewRun(command, domain string) *Run {
	return &Run{Command: command, Domain: domain, StartedAt: time.Now()}
}

// Add records a dataset result.
func (r *Run) Add(res DatasetResult) {
	r.Datasets = append(r.Datasets, res)
}

// Finish stamps the completion time.
func (r *Run) Finish() {
	r.CompletedAt = time.Now()
}

// Count returns how many datasets ended with status s.
func (r *Run) Count(s Status) int {
	n := 0
	for _, d := range r.Datasets {
		if d.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any dataset failed.
func (r *Run) Failed() bool {
	return r.Count(StatusFailed) > 0
}

// Summary returns a one-line summary of the run.
func (r *Run) Summary() string {
	return fmt.Sprintf("%s: %d datasets, %d emitted, %d planned, %d skipped, %d failed",
		r.Command, len(r.Datasets), r.Count(StatusEmitted), r.Count(StatusPlanned),
		r.Count(StatusSkipped), r.Count(StatusFailed))
}

// WriteJSON writes the report as JSON.
func WriteJSON(run *Run, path string) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return writeFile(path, data)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &Run{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// WriteYAML writes the report as YAML.
func WriteYAML(run *Run, path string) error {
	data, err := yaml.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return writeFile(path, data)
}

// Write picks the format from the file extension: .yaml/.yml, .txt or JSON.
func Write(run *Run, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return WriteYAML(run, path)
	case ".txt":
		return writeFile(path, []byte(FormatText(run)))
	default:
		return WriteJSON(run, path)
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// FormatText renders the report as human-readable text.
func FormatText(run *Run) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("=== catalogsync %s ===\n", run.Command))
	if run.Domain != "" {
		b.WriteString(fmt.Sprintf("Domain:    %s\n", run.Domain))
	}
	b.WriteString(fmt.Sprintf("Started:   %s\n", run.StartedAt.Format(time.RFC3339)))
	if !run.CompletedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Completed: %s (%s)\n", run.CompletedAt.Format(time.RFC3339),
			run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond)))
	}
	if run.DryRun {
		b.WriteString("Mode:      dry run (nothing written)\n")
	}
	b.WriteString("\n")

	for _, d := range run.Datasets {
		name := d.Table
		if name == "" {
			name = d.URN
		}
		line := fmt.Sprintf("  [%-7s] %s", strings.ToUpper(string(d.Status)), name)
		if d.PrimaryKeys > 0 || d.ForeignKeys > 0 {
			line += fmt.Sprintf(" (PK %d, FK %d)", d.PrimaryKeys, d.ForeignKeys)
		}
		if d.Error != "" {
			line += ": " + d.Error
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + run.Summary() + "\n")

	return b.String()
}
