package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/services/apiclient"
	logsvc "github.com/trezcool/masomoweb/services/logger"
	"github.com/trezcool/masomoweb/storage"
	"github.com/trezcool/masomoweb/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// set up client storage
	var (
		db      *sqlx.DB
		backend core.StorageBackend
		err     error
	)
	if conf.Session.Storage == core.StorageDatabase {
		// migrations are left to the migrate command
		db, err = database.Open(ctx, conf)
		errAndDie(logger, err)
		backend = database.NewStore(db)
	} else {
		backend, err = storage.Open(ctx, conf)
		errAndDie(logger, err)
	}

	api, err := apiclient.New(
		conf.API.BaseURL,
		apiclient.WithTimeout(conf.API.Timeout),
		apiclient.WithLogger(logger),
	)
	errAndDie(logger, err)

	// start CLI
	cli := commandLine{
		db:      db,
		backend: backend,
		api:     api,
		clock:   core.SystemClock,
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	if cErr := backend.Close(); cErr != nil {
		logger.Error("closing storage", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger *logsvc.RollbarLogger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
