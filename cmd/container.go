// container.go
package main

import (
	"context"

	"github.com/Abraxas-365/talentledger/db/migrations"
	"github.com/Abraxas-365/talentledger/pkg/config"
	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/fsx"
	"github.com/Abraxas-365/talentledger/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/talentledger/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/talentledger/pkg/iam/auth"
	"github.com/Abraxas-365/talentledger/pkg/jobs"
	"github.com/Abraxas-365/talentledger/pkg/lockx"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment/assignmentapi"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment/assignmentinfra"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment/assignmentsrv"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate/candidateapi"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate/candidateinfra"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate/candidatesrv"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand/demandapi"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand/demandinfra"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand/demandsrv"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer/importapi"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer/importinfra"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer/importsrv"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies
type Container struct {
	// Config
	Config *config.Config

	// Infrastructure
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.FileSystem
	S3Client   *s3.Client
	TxRunner   dbx.TxRunner
	Locker     lockx.Locker

	// Identity
	TokenService   auth.TokenService
	AuthMiddleware *auth.AuthMiddleware

	// Repositories
	Candidates candidate.CandidateRepository

	// Domain Services
	CandidateService *candidatesrv.Service
	ImportService    *importsrv.Service
	Engine           *assignmentsrv.Engine
	Reconciler       *demandsrv.Reconciler

	// API Handlers
	CandidateHandlers  *candidateapi.CandidateHandlers
	ImportHandlers     *importapi.ImportHandlers
	AssignmentHandlers *assignmentapi.AssignmentHandlers
	DemandHandlers     *demandapi.DemandHandlers

	// Background Services
	Scheduler *jobs.Scheduler
}

// NewContainer initializes the dependency injection container
func NewContainer(cfg *config.Config) *Container {
	logx.Info("Initializing dependency container...")

	c := &Container{
		Config: cfg,
	}

	c.initInfrastructure()
	c.initServices()

	logx.Info("Container initialized")
	return c
}

// openDB connects to Postgres with the configured pool limits
func openDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

func (c *Container) initInfrastructure() {
	logx.Info("Initializing infrastructure...")

	// 1. Database Connection
	db, err := openDB(c.Config.Database)
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	c.DB = db
	c.TxRunner = dbx.NewTxRunner(db)
	logx.Info("Database connected")

	if c.Config.Database.AutoMigrate {
		applied, err := dbx.Migrate(context.Background(), db, migrations.Files)
		if err != nil {
			logx.Fatalf("Failed to apply migrations: %v", err)
		}
		logx.Infof("Migrations up to date (%d applied)", len(applied))
	}

	// 2. Redis Connection
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis holds sync status and run locks)", err)
	}
	c.Locker = lockx.NewRedisLocker(c.Redis, c.redisPrefix())
	logx.Info("Redis connected")

	// 3. File Storage Configuration (Local or S3)
	c.initFileStorage()

	logx.Info("Infrastructure initialized")
}

func (c *Container) initFileStorage() {
	storage := c.Config.Storage

	switch storage.Mode {
	case config.StorageModeS3:
		cfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(storage.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.S3Client = s3.NewFromConfig(cfg)
		c.FileSystem = fsxs3.NewS3FileSystem(c.S3Client, storage.S3Bucket, storage.S3Prefix)
		logx.Infof("S3 file system configured (bucket: %s, region: %s)", storage.S3Bucket, storage.AWSRegion)

	default:
		localFS, err := fsxlocal.NewLocalFileSystem(storage.LocalDir)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.Infof("Local file system configured (path: %s)", localFS.GetBasePath())
	}
}

func (c *Container) initServices() {
	logx.Info("Initializing repositories and services...")
	staffing := c.Config.Staffing

	// --- Repositories ---
	c.Candidates = candidateinfra.NewPostgresCandidateRepository(c.DB)
	clients := candidateinfra.NewPostgresClientDirectory(c.DB)
	rawRows := importinfra.NewPostgresRawRowStore(c.DB)
	rowSource := importinfra.NewCSVRowSource(c.FileSystem, c.Config.Storage.InboxPrefix, c.Config.Storage.ArchivePrefix)
	syncStatus := importinfra.NewRedisSyncStatusStore(c.Redis, c.redisPrefix())
	assignments := assignmentinfra.NewPostgresAssignmentRepository(c.DB)
	talents := assignmentinfra.NewPostgresTalentRepository(c.DB)
	integrityLog := assignmentinfra.NewPostgresIntegrityLog(c.DB)
	ledger := demandinfra.NewPostgresLedgerRepository(c.DB)

	// --- Identity ---
	c.TokenService = auth.NewJWTServiceFromConfig(&c.Config.Auth.JWT)
	c.AuthMiddleware = auth.NewAuthMiddleware(c.TokenService)

	// --- Domain Services ---
	c.Engine = assignmentsrv.NewEngine(
		assignments,
		talents,
		integrityLog,
		c.TxRunner,
		assignmentsrv.PolicyFromConfig(staffing.Assignment),
	)

	c.Reconciler = demandsrv.NewReconciler(
		c.Candidates,
		clients,
		talents,
		c.Engine,
		ledger,
		c.TxRunner,
		staffing,
	)

	c.CandidateService = candidatesrv.NewService(
		c.Candidates,
		clients,
		c.TxRunner,
		c.Reconciler.HireHandler(),
		staffing.HireStatus,
	)

	c.ImportService = importsrv.NewService(
		c.Candidates,
		clients,
		rawRows,
		rowSource,
		syncStatus,
		c.Locker,
		c.TxRunner,
		importsrv.Options{
			DataSource: staffing.DataSource,
			BatchSize:  staffing.Imports.BatchSize,
			Retention:  staffing.Imports.RawRowRetention,
			LockTTL:    c.Config.Scheduler.LockTTL,
		},
	)

	// --- API Handlers ---
	c.CandidateHandlers = candidateapi.NewCandidateHandlers(c.CandidateService)
	c.ImportHandlers = importapi.NewImportHandlers(c.ImportService)
	c.AssignmentHandlers = assignmentapi.NewAssignmentHandlers(c.Engine)
	c.DemandHandlers = demandapi.NewDemandHandlers(c.Reconciler, c.Candidates)

	// --- Background Services ---
	c.Scheduler = jobs.NewScheduler(c.Config.Scheduler, c.Locker)
	for _, job := range jobs.StaffingJobs(c.Config.Scheduler, c.ImportService, c.Reconciler, c.Engine) {
		if err := c.Scheduler.Register(job); err != nil {
			logx.Fatalf("Failed to register job %s: %v", job.Name, err)
		}
	}

	logx.Info("All services and handlers initialized")
}

func (c *Container) redisPrefix() string {
	if c.Config.Redis.KeyPrefix == "" {
		return ""
	}
	return c.Config.Redis.KeyPrefix + ":"
}

// StartBackgroundServices starts the scheduler when enabled
func (c *Container) StartBackgroundServices(ctx context.Context) {
	if !c.Config.Scheduler.Enabled {
		logx.Info("Scheduler disabled")
		return
	}
	c.Scheduler.Start(ctx)
}

// Cleanup stops workers and closes all connections
func (c *Container) Cleanup() {
	logx.Info("Cleaning up resources...")

	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("Redis connection closed")
		}
	}

	logx.Sync()
}
