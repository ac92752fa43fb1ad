package database

import (
	"io/fs"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	appfs "github.com/trezcool/gradebook/fs"
)

func TestDSN(t *testing.T) {
	conf := &core.Config{}
	conf.Database.Engine = "postgres"
	conf.Database.Host = "db"
	conf.Database.Port = "5432"
	conf.Database.Name = "gradebook"
	conf.Database.User = "gradebook"
	conf.Database.Password = "s3cret/pw"
	conf.Database.AdminUser = "postgres"
	conf.Database.AdminPassword = "root"

	tests := []struct {
		name       string
		dbName     string
		admin      bool
		disableTLS bool
		adminUser  string
		wantUser   string
		wantPass   string
		wantSSL    string
	}{
		{"app user", "gradebook", false, false, "postgres", "gradebook", "s3cret/pw", "require"},
		{"admin user", "postgres", true, true, "postgres", "postgres", "root", "disable"},
		{"admin falls back to app user", "postgres", true, true, "", "gradebook", "s3cret/pw", "disable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf.Database.DisableTLS = tc.disableTLS
			conf.Database.AdminUser = tc.adminUser

			u, err := url.Parse(dsn(conf, tc.dbName, tc.admin))
			require.NoError(t, err)

			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, "db:5432", u.Host)
			assert.Equal(t, "/"+tc.dbName, u.Path)
			assert.Equal(t, tc.wantUser, u.User.Username())
			pass, _ := u.User.Password()
			assert.Equal(t, tc.wantPass, pass)
			assert.Equal(t, tc.wantSSL, u.Query().Get("sslmode"))
			assert.Equal(t, "utc", u.Query().Get("timezone"))
		})
	}
}

func TestTables_matchMigrations(t *testing.T) {
	created := regexp.MustCompile(`(?m)^CREATE TABLE (\w+)`)

	var found []string
	err := fs.WalkDir(appfs.FS, MigrationsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		body, err := appfs.FS.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range created.FindAllStringSubmatch(string(body), -1) {
			found = append(found, m[1])
		}
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, found, Tables)
}
