package database

import (
	"cmp"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"

	"openobservatory/internal/middleware"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// Migration is one versioned pair of SQL scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations = mustLoad(migrationFS, "migrations")

func mustLoad(fsys fs.FS, dir string) []Migration {
	loaded, err := LoadMigrations(fsys, dir)
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return loaded
}

// parseScriptName splits "000042_add_index.up.sql" into 42 and "add_index".
// ok is false when the file does not follow the naming scheme at all.
func parseScriptName(file string) (version int, name string, ok bool, err error) {
	stem := strings.TrimSuffix(file, upSuffix)
	prefix, name, found := strings.Cut(stem, "_")
	if !found || name == "" {
		return 0, "", false, nil
	}
	version, err = strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", true, fmt.Errorf("migration %s: version prefix %q is not a positive number", file, prefix)
	}
	return version, name, true, nil
}

// LoadMigrations reads NNNNNN_name.up.sql / NNNNNN_name.down.sql pairs from dir,
// sorted by version. Every up script needs a matching down script.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	ups, err := fs.Glob(fsys, path.Join(dir, "*"+upSuffix))
	if err != nil {
		return nil, fmt.Errorf("list migrations in %s: %w", dir, err)
	}

	owner := make(map[int]string, len(ups))
	out := make([]Migration, 0, len(ups))
	for _, upPath := range ups {
		file := path.Base(upPath)
		version, name, ok, err := parseScriptName(file)
		if err != nil {
			return nil, err
		}
		if !ok {
			middleware.Logger.Warn("ignoring misnamed migration", slog.String("file", file))
			continue
		}
		if other, taken := owner[version]; taken {
			return nil, fmt.Errorf("version %06d claimed by %s and %s", version, other, file)
		}
		owner[version] = file

		up, err := fs.ReadFile(fsys, upPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		downPath := strings.TrimSuffix(upPath, upSuffix) + downSuffix
		down, err := fs.ReadFile(fsys, downPath)
		if err != nil {
			return nil, fmt.Errorf("migration %s has no rollback script: %w", file, err)
		}
		out = append(out, Migration{Version: version, Name: name, UpScript: string(up), DownScript: string(down)})
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return migrations
}

// GetMigrationByVersion returns the migration with the given version, or nil.
func GetMigrationByVersion(version int) *Migration {
	i, found := slices.BinarySearchFunc(migrations, version, func(m Migration, v int) int {
		return cmp.Compare(m.Version, v)
	})
	if !found {
		return nil
	}
	return &migrations[i]
}
