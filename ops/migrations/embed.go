// Package migrations embeds the identity schema and its seed data.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql
var schema embed.FS

//go:embed seeds/*.sql
var seeds embed.FS

// SQL returns the schema migrations rooted at their directory.
func SQL() fs.FS { return sub(schema, "sql") }

// Seeds returns the seed files rooted at their directory.
func Seeds() fs.FS { return sub(seeds, "seeds") }

func sub(fsys embed.FS, dir string) fs.FS {
	s, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return s
}
