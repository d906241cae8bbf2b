package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_audit_entries.up.sql":   {Data: []byte("CREATE TABLE audit_entries ();")},
		"001_users.up.sql":           {Data: []byte("CREATE TABLE users ();")},
		"001_users.down.sql":         {Data: []byte("DROP TABLE users;")},
		"README.md":                  {Data: []byte("notes")},
		"nested/003_other.up.sql":    {Data: []byte("SELECT 1;")},
		"003_applications.up.sql":    {Data: []byte("CREATE TABLE applications ();")},
	}

	got, err := LoadMigrations(fsys)
	require.NoError(t, err)

	var versions []string
	for _, m := range got {
		versions = append(versions, m.Version)
	}
	assert.Equal(t, []string{"001_users", "002_audit_entries", "003_applications"}, versions)
	assert.Equal(t, "CREATE TABLE users ();", got[0].SQL)
}

func TestLoadMigrationsRejectsEmptyFile(t *testing.T) {
	fsys := fstest.MapFS{"001_blank.up.sql": {Data: []byte("  \n")}}
	_, err := LoadMigrations(fsys)
	assert.ErrorContains(t, err, "001_blank.up.sql is empty")
}

func TestPending(t *testing.T) {
	all := []Migration{{Version: "001"}, {Version: "002"}, {Version: "003"}}

	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{"fresh database", map[string]bool{}, []string{"001", "002", "003"}},
		{"partially applied", map[string]bool{"001": true}, []string{"002", "003"}},
		{"up to date", map[string]bool{"001": true, "002": true, "003": true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range Pending(all, tt.applied) {
				got = append(got, m.Version)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
