package shared

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/academic"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/auth"
	"github.com/nojinx/ssm/core/news"
	"github.com/nojinx/ssm/core/staff"
	"github.com/nojinx/ssm/core/student"
	cachesvc "github.com/nojinx/ssm/services/cache"
	"github.com/nojinx/ssm/storage/database"
	inmemdb "github.com/nojinx/ssm/storage/database/inmem"
	sqlxrepos "github.com/nojinx/ssm/storage/database/sqlx"
	boiledrepos "github.com/nojinx/ssm/storage/database/sqlboiler"
)

// Repositories groups the storage layer of the app.
type Repositories struct {
	Staff     staff.Repository
	Student   student.Repository
	Academic  academic.Repository
	Schedule  academic.ScheduleRepository
	Leave     staff.LeaveRepository
	News      news.Repository
	Audit     audit.Repository
	Blacklist auth.Blacklist
}

// MemoryRepositories returns repositories backed by a fresh in-memory store.
func MemoryRepositories() Repositories {
	db := inmemdb.Open()
	return Repositories{
		Staff:     inmemdb.NewStaffRepository(db),
		Student:   inmemdb.NewStudentRepository(db),
		Academic:  inmemdb.NewAcademicRepository(db),
		Schedule:  inmemdb.NewScheduleRepository(db),
		Leave:     inmemdb.NewLeaveRepository(db),
		News:      inmemdb.NewNewsRepository(db),
		Audit:     inmemdb.NewAuditRepository(db),
		Blacklist: inmemdb.NewBlacklist(db),
	}
}

// PostgresRepositories returns repositories backed by db.
func PostgresRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		Staff:     sqlxrepos.NewStaffRepository(db),
		Student:   sqlxrepos.NewStudentRepository(db),
		Academic:  sqlxrepos.NewAcademicRepository(db),
		Schedule:  sqlxrepos.NewScheduleRepository(db),
		Leave:     sqlxrepos.NewLeaveRepository(db),
		News:      sqlxrepos.NewNewsRepository(db),
		Audit:     boiledrepos.NewAuditRepository(db),
		Blacklist: sqlxrepos.NewBlacklist(db),
	}
}

// Deps holds the services shared by the API and the admin CLI.
type Deps struct {
	Conf       *core.Config
	Validate   *validator.Validate
	Translator ut.Translator

	StaffSvc    *staff.Service
	StudentSvc  *student.Service
	AcademicSvc *academic.Service
	ScheduleSvc *academic.ScheduleService
	LeaveSvc    *staff.LeaveService
	NewsSvc     *news.Service
	AuditSvc    *audit.Service
	AuthSvc     *auth.Service

	db      *sqlx.DB
	closers []func() error
}

// NewServices builds the services on top of repos.
func NewServices(conf *core.Config, repos Repositories, logger core.Logger) *Deps {
	validate, translator := NewValidate()
	staffSvc := staff.NewService(repos.Staff, validate)
	studentSvc := student.NewService(repos.Student, validate)
	return &Deps{
		Conf:        conf,
		Validate:    validate,
		Translator:  translator,
		StaffSvc:    staffSvc,
		StudentSvc:  studentSvc,
		AcademicSvc: academic.NewService(repos.Academic, studentSvc, validate),
		ScheduleSvc: academic.NewScheduleService(repos.Schedule, repos.Academic, validate),
		LeaveSvc:    staff.NewLeaveService(repos.Leave, validate),
		NewsSvc:     news.NewService(repos.News, validate),
		AuditSvc:    audit.NewService(repos.Audit, logger),
		AuthSvc:     auth.NewService(conf, staffSvc, studentSvc, repos.Blacklist),
	}
}

// NewDeps opens the storage selected by conf and builds the services.
// With database.engine "postgres" and migrate set, the database is created and migrated if needed.
// Revoked tokens go to redis when redis.url is set and reachable, to the database otherwise.
func NewDeps(ctx context.Context, conf *core.Config, logger core.Logger, migrate bool) (*Deps, error) {
	var repos Repositories
	var db *sqlx.DB

	if conf.Database.IsMemory() {
		logger.Warn("using in-memory storage: data will not survive a restart")
		repos = MemoryRepositories()
	} else {
		var err error
		if db, err = setUpDB(conf, migrate); err != nil {
			return nil, errors.Wrap(err, "setting up database")
		}
		repos = PostgresRepositories(db)
	}

	var closers []func() error
	if conf.Redis.URL != "" {
		rdb, err := cachesvc.Open(ctx, conf.Redis.URL)
		if err != nil {
			logger.Warn(fmt.Sprintf("redis unavailable, blacklisting tokens in storage: %v", err), err)
		} else {
			repos.Blacklist = cachesvc.NewBlacklist(rdb)
			closers = append(closers, rdb.Close)
		}
	}
	if db != nil {
		closers = append(closers, db.Close)
	}

	deps := NewServices(conf, repos, logger)
	deps.db = db
	deps.closers = closers
	return deps, nil
}

// DB returns the database handle, nil with in-memory storage.
func (d *Deps) DB() *sqlx.DB {
	return d.db
}

// Close releases the storage connections.
func (d *Deps) Close() error {
	var firstErr error
	for _, c := range d.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func setUpDB(conf *core.Config, migrate bool) (*sqlx.DB, error) {
	if migrate {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if !migrate {
		return db, nil
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
