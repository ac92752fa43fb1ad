package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/batch"
	"github.com/trezcool/gradebook/core/curriculum"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database"
	boiledrepos "github.com/trezcool/gradebook/storage/database/sqlboiler"
)

var logger core.Logger

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	errAndDie(database.Ping(db))

	// start CLI
	cli := newCommandLine(conf, db)
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed: "+err.Error(), err)
		}
		os.Exit(1)
	}
}

func newCommandLine(conf *core.Config, db *sql.DB) *commandLine {
	curricula := curriculum.NewService(
		conf,
		logger,
		boiledrepos.NewClassRepository(db),
		boiledrepos.NewCompetencyRepository(db),
		boiledrepos.NewSchemeRepository(db),
	)
	return &commandLine{
		db:        db,
		batches:   batch.NewService(boiledrepos.NewBatchRepository(db), boiledrepos.NewGradeRepository(db), curricula, logger),
		curricula: curricula,
		out:       os.Stdout,
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
