package dig_container

import (
	"context"
	"fmt"
	"io"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/japhetcordova/clc-sub000/apps/api/echo"
	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/accesspin"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/dashboard"
	"github.com/japhetcordova/clc-sub000/core/devotion"
	"github.com/japhetcordova/clc-sub000/core/member"
	"github.com/japhetcordova/clc-sub000/core/user"
	appfs "github.com/japhetcordova/clc-sub000/fs"
	emailsvc "github.com/japhetcordova/clc-sub000/services/email"
	"github.com/japhetcordova/clc-sub000/services/idcard"
	logsvc "github.com/japhetcordova/clc-sub000/services/logger"
	"github.com/japhetcordova/clc-sub000/services/report"
	"github.com/japhetcordova/clc-sub000/storage/blob"
	"github.com/japhetcordova/clc-sub000/storage/database"
	"github.com/japhetcordova/clc-sub000/storage/database/sqlxrepos"
	"github.com/japhetcordova/clc-sub000/storage/kv"
)

const redisKeyPrefix = "clc:"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// ClosersParam collects the clients to release on shutdown.
	ClosersParam struct {
		dig.In
		Closers []io.Closer `group:"closers"`
	}

	kvResult struct {
		dig.Out
		Store  core.KVStore
		Closer io.Closer `group:"closers"`
	}

	blobResult struct {
		dig.Out
		Store  core.BlobStore
		Closer io.Closer `group:"closers"`
	}

	depsParam struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Mail       core.EmailService
		Reports    *report.Generator
		Users      user.ServiceInterface
		Members    member.ServiceInterface
		Attendance attendance.ServiceInterface
		Classes    class.ServiceInterface
		Pins       accesspin.ServiceInterface
		Verses     devotion.ServiceInterface
		Dashboard  dashboard.ServiceInterface
	}
)

func newZap(conf *core.Config) *zap.Logger {
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("building zap logger: %v", err)
	}
	return zl
}

func newLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

// newKVStore uses redis when configured, else an in-process store.
func newKVStore(conf *core.Config, logger core.Logger) kvResult {
	if conf.Redis.Address == "" {
		logger.Info("redis not configured: using in-memory key-value store")
		return kvResult{Store: kv.NewMemoryStore(), Closer: nopCloser{}}
	}
	client, err := kv.Connect(context.Background(), conf.Redis)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return kvResult{Store: kv.NewRedisStore(client, redisKeyPrefix), Closer: client}
}

func newBlobStore(conf *core.Config, logger core.Logger) blobResult {
	store, closer, err := blob.New(context.Background(), conf.Storage)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob storage: %v", err), err)
	}
	return blobResult{Store: store, Closer: closer}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newCardRenderer(conf *core.Config, logger core.Logger) member.CardRenderer {
	cards, err := idcard.NewRenderer(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading ID card assets: %v", err), err)
	}
	return cards
}

func newClassService(repo class.Repository, members member.ServiceInterface, conf *core.Config) class.ServiceInterface {
	return class.NewService(repo, members, conf)
}

func newAttendanceService(
	repo attendance.Repository,
	members member.ServiceInterface,
	classes class.ServiceInterface,
	validate *validator.Validate,
	conf *core.Config,
) attendance.ServiceInterface {
	return attendance.NewService(repo, members, classes, validate, conf)
}

func newDashboardService(
	members member.ServiceInterface,
	att attendance.ServiceInterface,
	classes class.ServiceInterface,
	conf *core.Config,
) dashboard.ServiceInterface {
	return dashboard.NewService(members, att, classes, conf)
}

func newServerDeps(p depsParam) *echoapi.Deps {
	return &echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		Templates:     appfs.FS,
		Mail:          p.Mail,
		UserSvc:       p.Users,
		MemberSvc:     p.Members,
		AttendanceSvc: p.Attendance,
		ClassSvc:      p.Classes,
		PinSvc:        p.Pins,
		DevotionSvc:   p.Verses,
		DashboardSvc:  p.Dashboard,
		Reports:       p.Reports,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newZap))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newKVStore))
	must(c.Provide(newBlobStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newCardRenderer))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(report.NewGenerator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewMemberRepository))
	must(c.Provide(sqlxrepos.NewAttendanceRepository))
	must(c.Provide(sqlxrepos.NewClassRepository))
	must(c.Provide(sqlxrepos.NewVerseRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(member.NewService))
	must(c.Provide(newClassService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(accesspin.NewService))
	must(c.Provide(devotion.NewService))
	must(c.Provide(newDashboardService))

	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
