package importsrv

import (
	"context"
	"sort"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer"
	"github.com/Abraxas-365/talentledger/pkg/staffing/normalize"
	"golang.org/x/sync/errgroup"
)

const inboxReadConcurrency = 4

// ============================================================================
// Staging
// ============================================================================

// Stage persists raw rows with their content hash; identical rows submitted
// again are counted as duplicates and dropped
func (s *Service) Stage(ctx context.Context, dataSource string, records []map[string]string) (*importer.StageReport, error) {
	if dataSource == "" {
		dataSource = s.opts.DataSource
	}
	report := &importer.StageReport{DataSource: dataSource, Received: len(records)}
	if len(records) == 0 {
		return report, importer.ErrEmptyBatch()
	}

	now := s.now()
	for _, rec := range records {
		row := importer.RawRow{
			ID:         kernel.NewRawRowID(),
			DataSource: dataSource,
			Fields:     rec,
			ReceivedAt: now,
		}
		row.ContentHash = normalize.ContentHash(row.Known())

		staged, err := s.rows.Stage(ctx, row)
		if err != nil {
			return report, err
		}
		if staged {
			report.Staged++
		} else {
			report.Duplicates++
		}
	}

	logx.WithFields(logx.Fields{
		"data_source": dataSource,
		"received":    report.Received,
		"staged":      report.Staged,
		"duplicates":  report.Duplicates,
	}).Info("raw rows staged")
	return report, nil
}

// StageFile stages one CSV export from the file store and archives it
func (s *Service) StageFile(ctx context.Context, path string) (*importer.StageReport, error) {
	if s.source == nil {
		return nil, importer.ErrInvalidFile().WithDetail("reason", "no import file store configured")
	}
	records, err := s.source.ReadRows(ctx, path)
	if err != nil {
		return nil, err
	}
	report, err := s.Stage(ctx, s.opts.DataSource, records)
	if err != nil {
		return report, err
	}
	archived, err := s.source.Archive(ctx, path)
	if err != nil {
		return report, err
	}
	report.Files = []string{archived}
	return report, nil
}

type inboxFile struct {
	path    string
	records []map[string]string
	err     error
}

// StageInbox reads every inbox file concurrently, then stages and archives
// them in name order. Unreadable files are left in the inbox and logged.
func (s *Service) StageInbox(ctx context.Context) (*importer.StageReport, error) {
	total := &importer.StageReport{DataSource: s.opts.DataSource}
	if s.source == nil {
		return total, nil
	}

	names, err := s.source.Inbox(ctx)
	if err != nil {
		return total, err
	}
	sort.Strings(names)

	files := make([]inboxFile, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inboxReadConcurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			records, err := s.source.ReadRows(gctx, name)
			files[i] = inboxFile{path: name, records: records, err: err}
			if err != nil && dbx.IsFatal(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}

	for _, f := range files {
		if f.err != nil {
			logx.WithField("file", f.path).Warnf("skipping import file: %v", f.err)
			continue
		}
		if len(f.records) == 0 {
			logx.WithField("file", f.path).Warn("import file has no data rows")
		} else {
			rep, err := s.Stage(ctx, s.opts.DataSource, f.records)
			if err != nil {
				return total, err
			}
			total.Received += rep.Received
			total.Staged += rep.Staged
			total.Duplicates += rep.Duplicates
		}
		archived, err := s.source.Archive(ctx, f.path)
		if err != nil {
			return total, err
		}
		total.Files = append(total.Files, archived)
	}
	return total, nil
}

// ============================================================================
// Scheduled consolidation
// ============================================================================

// ConsolidatePending consolidates every staged row not yet processed, marking
// each one with its outcome, and records the run in the sync-status store.
// Only one run per data source executes at a time.
func (s *Service) ConsolidatePending(ctx context.Context) (*importer.Report, error) {
	lock, ok, err := s.locker.TryLock(ctx, "import:consolidate:"+s.opts.DataSource, s.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, importer.ErrRunInProgress().WithDetail("data_source", s.opts.DataSource)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logx.Warnf("failed to release import lock: %v", err)
		}
	}()

	s.markRunning(ctx)

	report := importer.NewReport(s.opts.DataSource, s.now())
	var cursor importer.PendingCursor
	var runErr error
	for {
		batch, err := s.rows.Pending(ctx, s.opts.DataSource, cursor, s.opts.BatchSize)
		if err != nil {
			report.Aborted = true
			runErr = err
			break
		}
		if len(batch) == 0 {
			break
		}
		cursor = importer.CursorAfter(batch[len(batch)-1])

		if err := s.consolidateRows(ctx, report, batch, true); err != nil {
			runErr = err
			break
		}
	}
	report.FinishedAt = s.now()
	s.logReport(report)
	s.saveStatus(context.WithoutCancel(ctx), report)
	return report, runErr
}

// SyncStatus returns the last-run snapshot with the current pending count
func (s *Service) SyncStatus(ctx context.Context) (*importer.SyncStatus, error) {
	status := &importer.SyncStatus{DataSource: s.opts.DataSource}
	if s.status != nil {
		loaded, err := s.status.Load(ctx, s.opts.DataSource)
		if err != nil {
			return nil, err
		}
		status = loaded
	}
	pending, err := s.rows.CountPending(ctx, s.opts.DataSource)
	if err != nil {
		return nil, err
	}
	status.Pending = pending
	return status, nil
}

// PurgeProcessed removes consolidated raw rows older than olderThan, falling
// back to the configured retention
func (s *Service) PurgeProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = s.opts.Retention
	}
	if olderThan <= 0 {
		return 0, errx.New("raw row retention must be positive", errx.TypeValidation)
	}
	n, err := s.rows.PurgeProcessed(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	logx.WithFields(logx.Fields{"purged": n, "older_than": olderThan.String()}).Info("processed raw rows purged")
	return n, nil
}

func (s *Service) markRunning(ctx context.Context) {
	if s.status == nil {
		return
	}
	current, err := s.status.Load(ctx, s.opts.DataSource)
	if err != nil {
		logx.Warnf("failed to load sync status: %v", err)
		return
	}
	current.Running = true
	if err := s.status.Save(ctx, *current); err != nil {
		logx.Warnf("failed to save sync status: %v", err)
	}
}

func (s *Service) saveStatus(ctx context.Context, report *importer.Report) {
	if s.status == nil {
		return
	}
	status := importer.FromReport(report)
	if pending, err := s.rows.CountPending(ctx, s.opts.DataSource); err == nil {
		status.Pending = pending
	}
	if err := s.status.Save(ctx, status); err != nil {
		logx.Warnf("failed to save sync status: %v", err)
	}
}
