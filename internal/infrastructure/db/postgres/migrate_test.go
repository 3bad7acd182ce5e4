package postgres

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrate struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	closeSrc   error
	closeDB    error
}

func (f *fakeMigrate) Up() error {
	return f.upErr
}

func (f *fakeMigrate) Down() error {
	return f.downErr
}

func (f *fakeMigrate) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}

func (f *fakeMigrate) Close() (error, error) {
	return f.closeSrc, f.closeDB
}

func TestMigrator_UpIgnoresNoChange(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{upErr: migrate.ErrNoChange, downErr: migrate.ErrNoChange}}
	assert.NoError(t, m.Up())
	assert.NoError(t, m.Down())
}

func TestMigrator_UpFailure(t *testing.T) {
	boom := errors.New("relation already exists")
	m := &Migrator{m: &fakeMigrate{upErr: boom}}

	err := m.Up()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestMigrator_VersionBeforeFirstMigration(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestMigrator_VersionReportsDirty(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{version: 1, dirty: true}}

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.True(t, dirty)
}

func TestMigrator_Close(t *testing.T) {
	assert.NoError(t, (&Migrator{m: &fakeMigrate{}}).Close())

	dbErr := errors.New("conn closed")
	err := (&Migrator{m: &fakeMigrate{closeDB: dbErr}}).Close()
	assert.ErrorIs(t, err, dbErr)
}

func TestMigrationsFS_Pairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}
