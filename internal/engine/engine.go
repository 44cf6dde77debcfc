package engine

import (
	"log/slog"
	"time"

	"github.com/catalogsync/catalogsync/internal/archive"
	"github.com/catalogsync/catalogsync/internal/catalog"
	"github.com/catalogsync/catalogsync/internal/config"
	"github.com/catalogsync/catalogsync/internal/source"
)

// Engine runs the sync commands against one catalog and one source database.
// It is sequential; datasets are processed one at a time.
type Engine struct {
	Config  *config.Config
	Catalog catalog.Catalog
	Open    source.Opener
	Archive archive.Archiver
	Logger  *slog.Logger

	now func() time.Time
}

// New creates an Engine. A nil archiver disables archiving.
func New(cfg *config.Config, cat catalog.Catalog, open source.Opener, arch archive.Archiver, logger *slog.Logger) *Engine {
	if arch == nil {
		arch = archive.Nop{}
	}
	if open == nil {
		open = source.Open
	}
	return &Engine{
		Config:  cfg,
		Catalog: cat,
		Open:    open,
		Archive: arch,
		Logger:  logger,
		now:     time.Now,
	}
}
