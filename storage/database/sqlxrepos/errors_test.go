package sqlxrepos

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japhetcordova/clc-sub000/core/devotion"
	"github.com/japhetcordova/clc-sub000/core/member"
	"github.com/japhetcordova/clc-sub000/core/user"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestPostgresUniqueViolations(t *testing.T) {
	ctx := context.Background()
	unique := func(constraint string) error {
		return &pq.Error{Code: "23505", Constraint: constraint}
	}

	tests := []struct {
		name    string
		dbErr   error
		run     func(db *sqlx.DB) error
		wantErr error
	}{
		{
			name:  "member code",
			dbErr: unique("members_code_key"),
			run: func(db *sqlx.DB) error {
				_, err := NewMemberRepository(db).CreateMember(ctx, member.Member{Code: "ABCD2345"})
				return err
			},
			wantErr: member.ErrCodeTaken,
		},
		{
			name:  "member email",
			dbErr: unique("members_email_key"),
			run: func(db *sqlx.DB) error {
				_, err := NewMemberRepository(db).CreateMember(ctx, member.Member{Code: "ABCD2345"})
				return err
			},
			wantErr: member.ErrMemberExists,
		},
		{
			name:  "verse schedule",
			dbErr: unique("verses_scheduled_for_key"),
			run: func(db *sqlx.DB) error {
				_, err := NewVerseRepository(db).CreateVerse(ctx, devotion.Verse{Reference: "Rom 8:28"})
				return err
			},
			wantErr: devotion.ErrDateTaken,
		},
		{
			name:  "user",
			dbErr: unique("users_username_key"),
			run: func(db *sqlx.DB) error {
				_, err := NewUserRepository(db).CreateUser(ctx, user.User{Name: "x"})
				return err
			},
			wantErr: user.ErrUserExists,
		},
		{
			name:  "other errors are wrapped",
			dbErr: &pq.Error{Code: "23503", Constraint: "members_pkey"},
			run: func(db *sqlx.DB) error {
				_, err := NewMemberRepository(db).CreateMember(ctx, member.Member{Code: "ABCD2345"})
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectExec("INSERT INTO").WillReturnError(tt.dbErr)

			err := tt.run(db)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				assert.True(t, errors.Is(err, tt.dbErr))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresPlaceholders(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT .* FROM verses WHERE scheduled_for = \$1 LIMIT 1`).
		WithArgs("2026-12-25").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewVerseRepository(db).ScheduledVerse(context.Background(), "2026-12-25")
	assert.Equal(t, devotion.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
