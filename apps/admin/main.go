package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/accesspin"
	"github.com/japhetcordova/clc-sub000/core/devotion"
	logsvc "github.com/japhetcordova/clc-sub000/services/logger"
	"github.com/japhetcordova/clc-sub000/storage/database"
	"github.com/japhetcordova/clc-sub000/storage/database/sqlxrepos"
	"github.com/japhetcordova/clc-sub000/storage/kv"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "building logger:", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	defer logger.Sync()

	// set up DB
	errAndDie(logger, database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(logger, err)
	defer func() { _ = db.Close() }()
	errAndDie(logger, db.Ping())

	// the PIN is shared with the API through redis only
	var store core.KVStore = kv.NewMemoryStore()
	if conf.Redis.Address != "" {
		client, err := kv.Connect(context.Background(), conf.Redis)
		errAndDie(logger, err)
		defer func() { _ = client.Close() }()
		store = kv.NewRedisStore(client, "clc:")
	} else {
		logger.Warn("redis not configured: PIN commands only see this process")
	}

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	// start CLI
	cli := &commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		pins:    accesspin.NewService(store, conf),
		verses:  devotion.NewService(sqlxrepos.NewVerseRepository(db), store, validate, conf, logger),
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		logger.Error("admin: "+err.Error(), err)
		logger.Sync()
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
