package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/accesspin"
	"github.com/japhetcordova/clc-sub000/core/devotion"
	"github.com/japhetcordova/clc-sub000/core/user"
	logsvc "github.com/japhetcordova/clc-sub000/services/logger"
	"github.com/japhetcordova/clc-sub000/storage/database/sqlxrepos"
	"github.com/japhetcordova/clc-sub000/storage/kv"
	testutil "github.com/japhetcordova/clc-sub000/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	conf := core.NewTestConfig()
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	store := kv.NewMemoryStore()

	db := testutil.OpenDB(t)
	var out bytes.Buffer
	cli := &commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		pins:    accesspin.NewService(store, conf),
		verses:  devotion.NewService(sqlxrepos.NewVerseRepository(db), store, validate, conf, logsvc.NewRollbarLogger(zap.NewNop(), conf)),
		out:     &out,
	}
	return cli, &out
}

// withPassword makes the password prompt return pwd.
func withPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
	wantOut string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPassword(t, tt.pwd)
			out.Reset()
			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tt.wantOut)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var got []string
	orig := runMigrationsFunc
	runMigrationsFunc = func(_ context.Context, _ *sql.DB, engine, command string, args ...string) error {
		if command == "lol" {
			return fmt.Errorf("%q: no such command", command)
		}
		got = append([]string{engine, command}, args...)
		return nil
	}
	t.Cleanup(func() { runMigrationsFunc = orig })

	assert.Error(t, cli.run([]string{"admin", "migrate"}))
	assert.EqualError(t, cli.run([]string{"admin", "migrate", "lol"}), `"lol": no such command`)

	require.NoError(t, cli.run([]string{"admin", "migrate", "up-to", "2"}))
	assert.Equal(t, []string{"sqlite", "up-to", "2"}, got)
}

func Test_commandLine_migrateForReal(t *testing.T) {
	cli, _ := setup(t)
	// the test DB is migrated already
	require.NoError(t, cli.run([]string{"admin", "migrate", "status"}))
	require.NoError(t, cli.run([]string{"admin", "migrate", "up"}))
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	assert.Error(t, cli.run([]string{"admin", "adduser", "--name", "Nobody"}))
	assert.Error(t, cli.run([]string{"admin", "adduser", "--username", "x", "--role", "deacon:"}))

	withPassword(t, "")
	assert.ErrorIs(t, cli.run([]string{"admin", "adduser", "--username", "x"}), errNoPassword)

	runCLITests(t, cli, out, []cliTest{
		{
			name: "admin created", args: []string{"adduser", "--name", "john mark", "--username", "Mark", "--email", "mark@test.cd", "--admin"},
			pwd: "s3cret!Pwd", wantOut: "user mark saved",
		},
		{
			name: "usher created", args: []string{"adduser", "--username", "rhoda", "--role", user.RoleUsher},
			pwd: "s3cret!Pwd", wantOut: "user rhoda saved",
		},
		{
			name: "existing user updated", args: []string{"adduser", "--email", "MARK@test.cd", "--role", user.RoleTeacher},
			pwd: "n3w!Pwd", wantOut: "user mark saved",
		},
	})

	mark, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "mark"})
	require.NoError(t, err)
	assert.Equal(t, "John Mark", mark.Name)
	assert.Equal(t, []string{user.RoleTeacher}, mark.Roles)
	assert.NoError(t, mark.CheckPassword("n3w!Pwd"))
	assert.True(t, mark.Active())

	rhoda, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "rhoda"})
	require.NoError(t, err)
	assert.True(t, rhoda.IsUsher())
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, out := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	assert.Error(t, cli.run([]string{"admin", "resetpassword"}), "--username is required")

	runCLITests(t, cli, out, []cliTest{
		{name: "empty password", args: []string{"resetpassword", "--username", usr.Username}, wantErr: errNoPassword},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "--username", "AWE@test.cd"}, pwd: "lmao"},
	})

	refreshed, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash))
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}

func Test_commandLine_pin(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	require.NoError(t, cli.run([]string{"admin", "pin", "show"}))
	current, err := cli.pins.Current(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), current.Value+" (date "+current.Date))

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "pin", "rotate"}))
	rotated, err := cli.pins.Current(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), rotated.Value))

	assert.Error(t, cli.run([]string{"admin", "pin", "show", "extra"}))
}

func Test_commandLine_versesImport(t *testing.T) {
	cli, out := setup(t)
	seed := filepath.Join("..", "..", "fs", "seed", "verses.yaml")

	runCLITests(t, cli, out, []cliTest{
		{name: "first import", args: []string{"verses", "import", seed}, wantOut: "10 verse(s) created, 0 skipped"},
		{name: "second import", args: []string{"verses", "import", seed}, wantOut: "0 verse(s) created, 10 skipped"},
		{name: "missing file", args: []string{"verses", "import", "nope.yaml"}, wantErr: os.ErrNotExist},
	})

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("verses:\n  - text: no reference\n"), 0o600))
	err := cli.run([]string{"admin", "verses", "import", bad})
	var vErrs validator.ValidationErrors
	assert.True(t, errors.As(err, &vErrs), "want validation errors, got %v", err)
}
