package main

import (
	"context"
	"github.com/CodedInternet/gosupercar/onboard"
	"github.com/CodedInternet/gosupercar/onboard/hardware"
	"go.uber.org/zap/zaptest"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func createTestServer(t *testing.T) (s *server, cleanup func()) {
	dir, err := ioutil.TempDir("", "supercar-main")
	if err != nil {
		t.Fatal(err)
	}

	db, err := openDb(filepath.Join(dir, "tmp", "test.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}

	log := zaptest.NewLogger(t).Sugar()
	car := onboard.NewSupercarFromConfig(onboard.DefaultFileConfig(), hardware.NewSimBridge(), log)
	car.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	s = &server{
		env: &EnvConfig{
			JWT_ISSUER: "TEST",
			JWT_SECRET: "test-secret",
			HTMLDIR:    dir,
		},
		db:     db,
		car:    car,
		store:  onboard.NewStormStore(db, log),
		remote: onboard.NewQueue[onboard.RemoteEvent](),
		log:    log,
		ctx:    ctx,
	}

	return s, func() {
		cancel()
		db.Close()
		os.RemoveAll(dir)
	}
}
