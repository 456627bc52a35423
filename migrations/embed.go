// Package migrations embeds the SQL migration files into the binary.
//
// Each engine has its own directory because column types differ; the
// version numbers are kept in step across both.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// SQLite returns the SQLite migrations.
func SQLite() fs.FS {
	return sub("sqlite")
}

// Postgres returns the PostgreSQL migrations.
func Postgres() fs.FS {
	return sub("postgres")
}

func sub(dir string) fs.FS {
	s, err := fs.Sub(files, dir)
	if err != nil {
		// Only possible if the embed directive above stops matching dir.
		panic(err)
	}
	return s
}
