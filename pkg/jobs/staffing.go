package jobs

import (
	"context"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/config"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer"
)

const (
	JobImport    = "import"
	JobHireSweep = "hire-sweep"
	JobIntegrity = "integrity-check"
	JobRetention = "raw-row-retention"
)

type Importer interface {
	StageInbox(ctx context.Context) (*importer.StageReport, error)
	ConsolidatePending(ctx context.Context) (*importer.Report, error)
	PurgeProcessed(ctx context.Context, olderThan time.Duration) (int64, error)
}

type HireSweeper interface {
	BatchProcess(ctx context.Context, clientID *kernel.ClientID) (*demand.BatchResult, error)
}

type IntegrityChecker interface {
	RunIntegrityCheck(ctx context.Context) (*assignment.IntegrityReport, error)
}

// StaffingJobs builds the daily import, the hire sweep, the integrity check
// and the raw-row retention job from the scheduler config
func StaffingJobs(cfg config.SchedulerConfig, imports Importer, hires HireSweeper, integrity IntegrityChecker) []Job {
	return []Job{
		{
			Name: JobImport,
			Spec: cfg.ImportSpec,
			Run: func(ctx context.Context) error {
				staged, err := imports.StageInbox(ctx)
				if err != nil {
					return err
				}
				report, err := imports.ConsolidatePending(ctx)
				if err != nil {
					if errx.IsCode(err, importer.CodeRunInProgress) {
						logx.Info("Consolidation already running; import job skipped")
						return nil
					}
					return err
				}
				logx.WithFields(logx.Fields{
					"staged":   staged.Staged,
					"inserted": report.Inserted,
					"skipped":  report.Skipped,
					"errors":   report.Errors,
				}).Info("Daily import completed")
				return nil
			},
		},
		{
			Name: JobHireSweep,
			Spec: cfg.HireSweepSpec,
			Run: func(ctx context.Context) error {
				_, err := hires.BatchProcess(ctx, nil)
				return err
			},
		},
		{
			Name: JobIntegrity,
			Spec: cfg.IntegritySpec,
			Run: func(ctx context.Context) error {
				_, err := integrity.RunIntegrityCheck(ctx)
				return err
			},
		},
		{
			Name: JobRetention,
			Spec: cfg.RetentionSpec,
			Run: func(ctx context.Context) error {
				n, err := imports.PurgeProcessed(ctx, 0)
				if err != nil {
					return err
				}
				logx.Infof("Purged %d consolidated raw rows", n)
				return nil
			},
		},
	}
}
