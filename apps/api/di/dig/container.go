package dig_container

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/audit"
	"github.com/trezcool/gradebook/core/batch"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	emailsvc "github.com/trezcool/gradebook/services/email"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/services/notify"
	"github.com/trezcool/gradebook/storage/database"
	boiledrepos "github.com/trezcool/gradebook/storage/database/sqlboiler"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sql.DB, core.DBExecutor) {
	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(db); err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.Email.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, log.New(os.Stdout, "MAIL : ", log.LstdFlags), logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidate(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	grade.InitValidators(validate, translator)
	return validate
}

type gradeParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Repo       grade.Repository
	Curricula  curriculum.ServiceInterface
	Audit      audit.ServiceInterface
	Batches    batch.ServiceInterface
	Notifier   grade.Notifier
	Validate   *validator.Validate
	Translator ut.Translator
}

func newGradeService(p gradeParams) grade.ServiceInterface {
	return grade.NewService(grade.Deps{
		Config:     p.Conf,
		Logger:     p.Logger,
		Repo:       p.Repo,
		Curricula:  p.Curricula,
		Audit:      p.Audit,
		Batches:    p.Batches,
		Notifier:   p.Notifier,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	CurriculumSvc curriculum.ServiceInterface
	GradeSvc      grade.ServiceInterface
	AuditSvc      audit.ServiceInterface
	BatchSvc      batch.ServiceInterface
	Validate      *validator.Validate
	Translator    ut.Translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		CurriculumSvc: p.CurriculumSvc,
		GradeSvc:      p.GradeSvc,
		AuditSvc:      p.AuditSvc,
		BatchSvc:      p.BatchSvc,
		Validate:      p.Validate,
		Translator:    p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidate))

	// repositories
	must(c.Provide(boiledrepos.NewClassRepository, dig.As(new(curriculum.ClassRepository))))
	must(c.Provide(boiledrepos.NewCompetencyRepository, dig.As(new(curriculum.CompetencyRepository))))
	must(c.Provide(boiledrepos.NewSchemeRepository, dig.As(new(curriculum.SchemeRepository))))
	must(c.Provide(boiledrepos.NewGradeRepository, dig.As(new(grade.Repository), new(batch.GradeQuerier))))
	must(c.Provide(boiledrepos.NewAuditRepository, dig.As(new(audit.Repository))))
	must(c.Provide(boiledrepos.NewBatchRepository, dig.As(new(batch.Repository))))

	// services
	must(c.Provide(curriculum.NewService, dig.As(new(curriculum.ServiceInterface))))
	must(c.Provide(audit.NewService, dig.As(new(audit.ServiceInterface))))
	must(c.Provide(batch.NewService, dig.As(new(batch.ServiceInterface))))
	must(c.Provide(notify.NewEmailNotifier, dig.As(new(grade.Notifier))))
	must(c.Provide(newGradeService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
