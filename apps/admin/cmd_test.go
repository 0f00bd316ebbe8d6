package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/core/user"
	"github.com/trezcool/masomoweb/services/apiclient"
	"github.com/trezcool/masomoweb/storage/database"
	testutil "github.com/trezcool/masomoweb/tests"
)

var t0 = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func setup(t *testing.T, token string) (*commandLine, *bytes.Buffer) {
	conf := &core.Config{WorkDir: t.TempDir()}
	conf.Database.Engine = database.EngineSQLite
	conf.Database.Path = "admin_test.db"

	db, err := database.Open(context.Background(), conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	store := database.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var form map[string]string
		_ = json.NewDecoder(r.Body).Decode(&form)
		w.Header().Set("Content-Type", "application/json")
		if form["username"] != "jane" || form["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	}))
	t.Cleanup(apiSrv.Close)
	api, err := apiclient.New(apiSrv.URL)
	if err != nil {
		t.Fatalf("apiclient.New() failed: %v", err)
	}

	out := new(bytes.Buffer)
	return &commandLine{
		db:      db,
		backend: store,
		api:     api,
		clock:   testutil.NewFakeClock(t0),
		out:     out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, cli *commandLine, out *bytes.Buffer) {
	out.Reset()
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
	if tt.wantOut != "" {
		assert.Contains(t, out.String(), tt.wantOut)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t, "")

	tests := []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown flag", args: []string{"evict", "-lol"}, wantErr: errHelp},
		{name: "inspecttoken: no token", args: []string{"inspecttoken"}, wantErr: errHelp},
		{name: "evict: no client", args: []string{"evict"}, wantErr: errHelp},
		{name: "purge: no duration", args: []string{"purge"}, wantErr: errHelp},
		{name: "purge: bad duration", args: []string{"purge", "-older-than", "lol"}, wantErr: errHelp},
		{name: "login: no username", args: []string{"login"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t, "")

	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = database.RunMigrations })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "sessions", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}

	cli.db = nil
	cliTest{args: []string{"migrate", "up"}, wantErr: errNoDatabase}.check(t, cli, out)
}

func Test_commandLine_migrate_real(t *testing.T) {
	cli, out := setup(t, "")
	cliTest{args: []string{"migrate", "status"}}.check(t, cli, out)
	cliTest{args: []string{"migrate", "version"}}.check(t, cli, out)
}

func Test_commandLine_inspectToken(t *testing.T) {
	cli, out := setup(t, "")

	tests := []cliTest{
		{name: "malformed", args: []string{"inspecttoken", "-token", "lol"}, wantErrStr: "malformed token"},
		{
			name:    "valid",
			args:    []string{"inspecttoken", "-token", testutil.TokenFor(t, "5", t0.Add(time.Hour), user.RoleTeacher)},
			wantOut: "expires:  2026-10-19T09:00:00Z\nstatus:   valid",
		},
		{
			name:    "expired",
			args:    []string{"inspecttoken", "-token", testutil.TokenFor(t, "5", t0.Add(-time.Minute))},
			wantOut: "status:   expired",
		},
		{
			name:    "no expiry",
			args:    []string{"inspecttoken", "-token", testutil.TokenFor(t, "5", time.Time{})},
			wantOut: "expires:  never",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}
}

func Test_commandLine_evict(t *testing.T) {
	cli, out := setup(t, "")
	ctx := context.Background()
	store := cli.backend.Bucket("c1")
	_ = store.Set(ctx, core.KeyToken, "tok")
	_ = store.Set(ctx, core.KeySidebarOpen, "false")

	cliTest{args: []string{"evict", "-client", "c1"}, wantOut: "client c1 evicted"}.check(t, cli, out)
	_, err := store.Get(ctx, core.KeyToken)
	assert.Equal(t, core.ErrKeyNotFound, err)
	_, err = store.Get(ctx, core.KeySidebarOpen)
	assert.Equal(t, core.ErrKeyNotFound, err)

	// unknown clients are fine
	cliTest{args: []string{"evict", "-client", "nope"}}.check(t, cli, out)
}

func Test_commandLine_purge(t *testing.T) {
	cli, out := setup(t, "")
	ctx := context.Background()
	_ = cli.backend.Bucket("c1").Set(ctx, core.KeyToken, "tok")

	// rows are stamped with the wall clock: look at them from two hours later
	cli.clock = testutil.NewFakeClock(time.Now().Add(2 * time.Hour))

	cliTest{args: []string{"purge", "-older-than", "3h"}, wantOut: "0 client(s) purged"}.check(t, cli, out)
	cliTest{args: []string{"purge", "-older-than", "1h"}, wantOut: "1 client(s) purged"}.check(t, cli, out)
	_, err := cli.backend.Bucket("c1").Get(ctx, core.KeyToken)
	assert.Equal(t, core.ErrKeyNotFound, err)

	cli.db = nil
	cliTest{args: []string{"purge", "-older-than", "1h"}, wantErr: errNoDatabase}.check(t, cli, out)
}

func Test_commandLine_login(t *testing.T) {
	token := testutil.TokenFor(t, "5", t0.Add(time.Hour))
	cli, out := setup(t, token)
	ctx := context.Background()

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no password", args: []string{"login", "-username", "jane"}, wantErr: errHelp},
		{name: "rejected", args: []string{"login", "-username", "jane"}, extra: extra{pwd: "lol"}, wantErrStr: "invalid credentials"},
		{name: "signed in", args: []string{"login", "-username", " jane "}, extra: extra{pwd: "secret"}, wantOut: token},
		{name: "seeding a client", args: []string{"login", "-username", "jane", "-client", "c1"}, extra: extra{pwd: "secret"}, wantOut: token},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}

	val, err := cli.backend.Bucket("c1").Get(ctx, core.KeyToken)
	assert.NoError(t, err)
	assert.Equal(t, token, val)
	val, err = cli.backend.Bucket("c1").Get(ctx, core.KeyUserID)
	assert.NoError(t, err)
	assert.Equal(t, "5", val)
}
