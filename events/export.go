package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/deevus/siem-tui/api"
)

// DefaultExportTimeout bounds a whole export, body included.
const DefaultExportTimeout = 30 * time.Second

// ErrInvalidFormat is returned for export formats other than json and csv.
var ErrInvalidFormat = errors.New("unsupported export format")

// ValidFormat reports whether format can be exported.
func ValidFormat(format string) bool {
	return format == "json" || format == "csv"
}

// ExportFilename is the download name for an export taken at t.
func ExportFilename(format string, t time.Time) string {
	return fmt.Sprintf("events_export_%s.%s", t.UTC().Format("2006-01-02"), format)
}

// ExportResult describes a completed export.
type ExportResult struct {
	Path  string
	Bytes int64
}

// ExporterParams holds configuration for creating an Exporter.
type ExporterParams struct {
	Service api.EventsAPI
	Dir     string
	Timeout time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

// Exporter writes export payloads into a download directory. A file only
// appears under its final name once the whole payload has been received.
type Exporter struct {
	svc     api.EventsAPI
	dir     string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewExporter creates an Exporter.
func NewExporter(p ExporterParams) *Exporter {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultExportTimeout
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	dir := p.Dir
	if dir == "" {
		dir = "."
	}
	return &Exporter{svc: p.Service, dir: dir, timeout: timeout, logger: logger, now: now}
}

// Dir returns the download directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// Export fetches events matching f in format and saves them to the
// download directory. Pagination fields of f are ignored.
func (e *Exporter) Export(ctx context.Context, f Filter, format string) (ExportResult, error) {
	if !ValidFormat(format) {
		return ExportResult{}, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("creating download dir: %w", err)
	}

	tmp, err := os.CreateTemp(e.dir, ".events_export_*.part")
	if err != nil {
		return ExportResult{}, fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			os.Remove(tmpName)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	n, err := e.svc.Export(ctx, f.ExportValues(format), tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("writing export: %w", cerr)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && api.KindOf(err) != api.KindAuthRequired {
			err = fmt.Errorf("%w: %w", api.ErrTimeout, err)
		}
		if !api.IsSilent(err) {
			e.logger.Error("export failed", "format", format, "error", err)
		}
		return ExportResult{}, err
	}

	path := filepath.Join(e.dir, ExportFilename(format, e.now()))
	if err := os.Rename(tmpName, path); err != nil {
		return ExportResult{}, fmt.Errorf("saving export: %w", err)
	}
	keep = true

	e.logger.Info("export saved", "path", path, "bytes", n)
	return ExportResult{Path: path, Bytes: n}, nil
}

// ExportMessage is the user-facing text for a failed export.
func ExportMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFormat):
		return fmt.Sprintf("Неподдерживаемый формат экспорта: %v", err)
	case api.KindOf(err) == api.KindAuthRequired:
		return "Требуется аутентификация. Пожалуйста, войдите снова."
	case api.KindOf(err) == api.KindTimeout:
		return "Превышено время ожидания экспорта. Попробуйте экспортировать меньше событий."
	default:
		return fmt.Sprintf("Не удалось экспортировать данные: %v", err)
	}
}
