// Package testutil opens a migrated test database and creates fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/devotion"
	"github.com/japhetcordova/clc-sub000/core/member"
	"github.com/japhetcordova/clc-sub000/core/user"
	"github.com/japhetcordova/clc-sub000/storage/database"
)

// OpenDB opens a migrated in-memory sqlite database, closed when t ends.
func OpenDB(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.Open(core.NewTestConfig())
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreateUser(
	t testing.TB,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateMember creates an active member; m.Code and m.Gender are filled when empty.
func CreateMember(t testing.TB, repo member.Repository, m member.Member) member.Member {
	t.Helper()
	if m.Code == "" {
		code, err := member.NewCode()
		if err != nil {
			t.Fatalf("CreateMember() failed: %v", err)
		}
		m.Code = code
	}
	if m.Gender == "" {
		m.Gender = member.GenderFemale
	}
	now := time.Now().UTC()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now
	}
	m.CreatedAt, m.UpdatedAt = now, now

	m, err := repo.CreateMember(context.Background(), m)
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return m
}

// CreateClass creates c; StartsOn defaults to 2026-01-01.
func CreateClass(t testing.TB, repo class.Repository, c class.Class) class.Class {
	t.Helper()
	if c.StartsOn == "" {
		c.StartsOn = "2026-01-01"
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	c, err := repo.CreateClass(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return c
}

func CreateVerse(t testing.TB, repo devotion.Repository, v devotion.Verse) devotion.Verse {
	t.Helper()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v, err := repo.CreateVerse(context.Background(), v)
	if err != nil {
		t.Fatalf("CreateVerse() failed: %v", err)
	}
	return v
}
