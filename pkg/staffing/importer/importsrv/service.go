package importsrv

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/lockx"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/Abraxas-365/talentledger/pkg/ptrx"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer"
	"github.com/Abraxas-365/talentledger/pkg/staffing/normalize"
)

type Options struct {
	DataSource string
	BatchSize  int
	Retention  time.Duration
	LockTTL    time.Duration
}

// Service stages raw aggregation rows and consolidates them, append-only,
// into the candidate ledger
type Service struct {
	candidates candidate.CandidateRepository
	clients    candidate.ClientDirectory
	rows       importer.RawRowStore
	source     importer.RowSource
	status     importer.SyncStatusStore
	locker     lockx.Locker
	tx         dbx.TxRunner
	opts       Options
	now        func() time.Time
}

func NewService(
	candidates candidate.CandidateRepository,
	clients candidate.ClientDirectory,
	rows importer.RawRowStore,
	source importer.RowSource,
	status importer.SyncStatusStore,
	locker lockx.Locker,
	tx dbx.TxRunner,
	opts Options,
) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	if locker == nil {
		locker = lockx.NoopLocker{}
	}
	return &Service{
		candidates: candidates,
		clients:    clients,
		rows:       rows,
		source:     source,
		status:     status,
		locker:     locker,
		tx:         tx,
		opts:       opts,
		now:        time.Now,
	}
}

// ============================================================================
// Consolidation
// ============================================================================

// Consolidate merges rows into the candidate ledger. Each row is handled on its
// own: a row-level failure is logged and counted, and processing continues.
// A connection-class failure aborts the run and is returned with the partial
// report; rows committed before it stay committed.
func (s *Service) Consolidate(ctx context.Context, rows []importer.RawRow) (*importer.Report, error) {
	report := importer.NewReport(s.opts.DataSource, s.now())
	err := s.consolidateRows(ctx, report, rows, false)
	report.FinishedAt = s.now()
	s.logReport(report)
	return report, err
}

func (s *Service) consolidateRows(ctx context.Context, report *importer.Report, rows []importer.RawRow, staged bool) error {
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			return err
		}

		item, err := s.consolidateRow(ctx, row)
		if err != nil {
			item.Outcome = importer.OutcomeError
			item.Error = err.Error()
			report.Record(item)

			if dbx.IsFatal(err) {
				report.Aborted = true
				logx.WithFields(logx.Fields{
					"row_id":      row.ID.String(),
					"data_source": report.DataSource,
				}).Errorf("import aborted: %v", err)
				return err
			}
			logx.WithFields(logx.Fields{
				"row_id":         row.ID.String(),
				"candidate_name": item.Name,
			}).Warnf("import row skipped: %v", err)
		} else {
			report.Record(item)
		}

		if staged && !row.ID.IsEmpty() {
			if err := s.rows.MarkConsolidated(ctx, row.ID, item.Outcome, s.now()); err != nil {
				if dbx.IsFatal(err) {
					report.Aborted = true
					return err
				}
				logx.WithField("row_id", row.ID.String()).Warnf("failed to mark raw row consolidated: %v", err)
			}
		}
	}
	return nil
}

// consolidateRow applies normalization to one row and inserts it unless a
// candidate with the same name key already exists
func (s *Service) consolidateRow(ctx context.Context, row importer.RawRow) (importer.RowResult, error) {
	item := importer.RowResult{RowID: row.ID}

	name := normalize.CleanName(row.Get(importer.FieldCandidateName))
	item.Name = name
	nameKey := normalize.NameKey(name)
	if normalize.CleanText(nameKey) == "" {
		item.Outcome = importer.OutcomeSkippedEmptyName
		return item, nil
	}

	rawStatus := normalize.CleanText(row.Get(importer.FieldStatus))
	res := normalize.NormalizeStatus(rawStatus)
	source, vendor := normalize.ClassifySource(
		normalize.CleanText(row.Get(importer.FieldSource)),
		normalize.CleanText(row.Get(importer.FieldVendorPartner)),
	)

	item.OriginalStatus = rawStatus
	item.Status = res.Status
	item.Flag = string(res.Flag)
	item.DropReason = res.DropReason
	item.Source = source
	item.VendorPartner = vendor

	notes := candidate.ImportNotes{}
	profileDate := s.parseDate(row, importer.FieldProfileReceivedDate, notes, &item)
	startDate := s.parseDate(row, importer.FieldPositionStartDate, notes, &item)

	now := s.now()
	dataSource := row.DataSource
	if dataSource == "" {
		dataSource = s.opts.DataSource
	}
	c := candidate.Candidate{
		ID:                  kernel.NewCandidateID(),
		Name:                name,
		NameKey:             nameKey,
		Role:                normalize.CleanText(row.Get(importer.FieldRole)),
		ExperienceLevel:     normalize.CleanText(row.Get(importer.FieldExperience)),
		Source:              source,
		VendorPartner:       ptrx.StringOrNil(vendor),
		Location:            normalize.CleanText(row.Get(importer.FieldLocation)),
		Email:               normalize.CleanText(row.Get(importer.FieldEmail)),
		ContactNumber:       normalize.CleanText(row.Get(importer.FieldContactNumber)),
		ExpectedCTC:         normalize.CleanText(row.Get(importer.FieldExpectedCTC)),
		NextSteps:           normalize.CleanText(row.Get(importer.FieldNextSteps)),
		InterviewFeedback:   normalize.CleanText(row.Get(importer.FieldInterviewFeedback)),
		NoticePeriod:        normalize.CleanText(row.Get(importer.FieldNoticePeriod)),
		ProfileReceivedDate: profileDate,
		PositionStartDate:   startDate,
		DataSource:          dataSource,
		SourceRowID:         ptrx.StringOrNil(row.ID.String()),
		OriginalStatus:      rawStatus,
		ImportConflicts:     notes,
		ImportedAt:          &now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	c.ApplyStatus(res, now)
	if rawStatus == "" {
		c.StatusChangedAt = nil
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		exists, err := s.candidates.ExistsByNameKey(ctx, c.NameKey)
		if err != nil {
			return err
		}
		if exists {
			return candidate.ErrCandidateAlreadyExists()
		}

		client, err := s.resolveClient(ctx, row.Get(importer.FieldPotentialClient))
		if err != nil {
			return err
		}
		if client != nil {
			c.ClientID = &client.ID
		}

		return s.candidates.Create(ctx, c)
	})
	if errx.IsCode(err, candidate.CodeCandidateAlreadyExists) {
		item.Outcome = importer.OutcomeSkippedExisting
		return item, nil
	}
	if err != nil {
		return item, err
	}

	item.Outcome = importer.OutcomeInserted
	item.CandidateID = &c.ID
	return item, nil
}

// resolveClient does a case-insensitive partial match; no match is not an error
func (s *Service) resolveClient(ctx context.Context, raw string) (*candidate.Client, error) {
	name := normalize.CleanText(raw)
	if name == "" {
		return nil, nil
	}
	client, err := s.clients.FindByNamePartial(ctx, name)
	if errx.IsCode(err, candidate.CodeClientNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// parseDate records ambiguous and unparseable values in notes instead of guessing
func (s *Service) parseDate(row importer.RawRow, field string, notes candidate.ImportNotes, item *importer.RowResult) *time.Time {
	raw := normalize.CleanText(row.Get(field))
	if raw == "" {
		return nil
	}

	res := normalize.ParseDateDetailed(raw)
	key := dateNoteKey(field)
	switch {
	case !res.OK:
		notes[key] = map[string]any{"raw": raw, "issue": "unparseable"}
		item.Conflicts = append(item.Conflicts, field+": unparseable")
		return nil
	case res.Ambiguous:
		notes[key] = map[string]any{
			"raw":       raw,
			"issue":     "ambiguous",
			"parsed":    res.Date.Format("2006-01-02"),
			"alternate": res.Alternate.Format("2006-01-02"),
			"layout":    res.Layout,
		}
		item.Conflicts = append(item.Conflicts, field+": ambiguous")
	}
	d := res.Date
	return &d
}

func dateNoteKey(field string) string {
	return strings.ReplaceAll(strings.ToLower(field), " ", "_")
}

func (s *Service) logReport(r *importer.Report) {
	entry := logx.WithFields(logx.Fields{
		"data_source": r.DataSource,
		"processed":   r.Processed,
		"inserted":    r.Inserted,
		"skipped":     r.Skipped,
		"errors":      r.Errors,
		"aborted":     r.Aborted,
	})
	if r.Aborted || r.Errors > 0 {
		entry.Warn("import consolidation finished with problems")
		return
	}
	entry.Info("import consolidation finished")
}
