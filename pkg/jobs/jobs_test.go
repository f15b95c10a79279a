package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/config"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/lockx"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer"
)

type refusingLocker struct{}

func (refusingLocker) TryLock(context.Context, string, time.Duration) (lockx.Lock, bool, error) {
	return nil, false, nil
}

type fakeImporter struct {
	staged, consolidated, purged int
	consolidateErr               error
}

func (f *fakeImporter) StageInbox(context.Context) (*importer.StageReport, error) {
	f.staged++
	return &importer.StageReport{Staged: 3}, nil
}

func (f *fakeImporter) ConsolidatePending(context.Context) (*importer.Report, error) {
	f.consolidated++
	if f.consolidateErr != nil {
		return nil, f.consolidateErr
	}
	return &importer.Report{Inserted: 3}, nil
}

func (f *fakeImporter) PurgeProcessed(_ context.Context, olderThan time.Duration) (int64, error) {
	f.purged++
	return 7, nil
}

type fakeHires struct{ calls int }

func (f *fakeHires) BatchProcess(_ context.Context, clientID *kernel.ClientID) (*demand.BatchResult, error) {
	f.calls++
	return &demand.BatchResult{}, nil
}

type fakeIntegrity struct{ calls int }

func (f *fakeIntegrity) RunIntegrityCheck(context.Context) (*assignment.IntegrityReport, error) {
	f.calls++
	return &assignment.IntegrityReport{}, nil
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:       true,
		ImportSpec:    "0 0 2 * * *",
		HireSweepSpec: "0 30 2 * * *",
		IntegritySpec: "0 0 3 * * *",
		RetentionSpec: "",
		LockTTL:       time.Minute,
		JobTimeout:    time.Minute,
	}
}

func TestRunJobAppliesTimeout(t *testing.T) {
	s := NewScheduler(testConfig(), nil)

	var hadDeadline bool
	err := s.RunJob(context.Background(), Job{Name: "probe", Run: func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !hadDeadline {
		t.Fatalf("job context has no deadline")
	}
}

func TestRunJobSkipsWhenLockHeld(t *testing.T) {
	s := NewScheduler(testConfig(), refusingLocker{})

	ran := false
	if err := s.RunJob(context.Background(), Job{Name: "probe", Run: func(context.Context) error {
		ran = true
		return nil
	}}); err != nil {
		t.Fatalf("held lock must not be an error: %v", err)
	}
	if ran {
		t.Fatalf("job ran without the lock")
	}
}

func TestRunJobReturnsJobError(t *testing.T) {
	s := NewScheduler(testConfig(), nil)
	boom := errors.New("boom")

	if err := s.RunJob(context.Background(), Job{Name: "probe", Run: func(context.Context) error { return boom }}); !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestRegisterSkipsEmptySpecAndRejectsInvalid(t *testing.T) {
	s := NewScheduler(testConfig(), nil)
	noop := func(context.Context) error { return nil }

	if err := s.Register(Job{Name: "off", Run: noop}); err != nil {
		t.Fatalf("empty spec: %v", err)
	}
	if err := s.Register(Job{Name: "bad", Spec: "every tuesday", Run: noop}); !errx.IsType(err, errx.TypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := s.Register(Job{Name: "ok", Spec: "0 0 2 * * *", Run: noop}); err != nil {
		t.Fatalf("valid spec: %v", err)
	}
	if len(s.Jobs()) != 1 || s.Jobs()[0].Name != "ok" {
		t.Fatalf("registered = %+v", s.Jobs())
	}
}

func TestStaffingJobsWiring(t *testing.T) {
	cfg := testConfig()
	imports := &fakeImporter{}
	hires := &fakeHires{}
	integrity := &fakeIntegrity{}
	s := NewScheduler(cfg, nil)
	ctx := context.Background()

	byName := map[string]Job{}
	for _, job := range StaffingJobs(cfg, imports, hires, integrity) {
		byName[job.Name] = job
		if err := s.Register(job); err != nil {
			t.Fatalf("register %s: %v", job.Name, err)
		}
	}
	if len(s.Jobs()) != 3 {
		t.Fatalf("retention has no spec and must stay unscheduled, got %d jobs", len(s.Jobs()))
	}

	for _, name := range []string{JobImport, JobHireSweep, JobIntegrity, JobRetention} {
		if err := s.RunJob(ctx, byName[name]); err != nil {
			t.Fatalf("run %s: %v", name, err)
		}
	}
	if imports.staged != 1 || imports.consolidated != 1 || imports.purged != 1 || hires.calls != 1 || integrity.calls != 1 {
		t.Fatalf("unexpected calls: %+v hires=%d integrity=%d", imports, hires.calls, integrity.calls)
	}
}

func TestImportJobToleratesConcurrentRun(t *testing.T) {
	imports := &fakeImporter{consolidateErr: importer.ErrRunInProgress()}
	job := StaffingJobs(testConfig(), imports, &fakeHires{}, &fakeIntegrity{})[0]

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run in progress must not fail the job: %v", err)
	}
}
