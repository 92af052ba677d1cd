package rqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletauth/pkg/logging"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrate applies the built-in schema (refresh tokens, accounts, security events).
func Migrate(ctx context.Context, db *sql.DB, logger *logging.ColoredLogger) error {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	return ApplyMigrations(ctx, db, sub, logger)
}

// ApplyMigrations applies every *.sql file at the root of fsys, ordered by numeric prefix,
// that is not yet recorded in schema_migrations(version).
func ApplyMigrations(ctx context.Context, db *sql.DB, fsys fs.FS, logger *logging.ColoredLogger) error {
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := ensureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := readMigrationFiles(fsys)
	if err != nil {
		return fmt.Errorf("read migration files: %w", err)
	}
	if len(files) == 0 {
		logger.ComponentInfo(logging.ComponentStore, "No migrations found")
		return nil
	}

	applied, err := loadAppliedVersions(ctx, db)
	if err != nil {
		return fmt.Errorf("load applied versions: %w", err)
	}

	for _, mf := range files {
		if applied[mf.Version] {
			logger.ComponentDebug(logging.ComponentStore, "Migration already applied; skipping",
				zap.Int("version", mf.Version), zap.String("name", mf.Name))
			continue
		}

		script, err := fs.ReadFile(fsys, mf.Name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", mf.Name, err)
		}

		logger.ComponentInfo(logging.ComponentStore, "Applying migration",
			zap.Int("version", mf.Version), zap.String("name", mf.Name))
		if err := applySQL(ctx, db, string(script)); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", mf.Version, mf.Name, err)
		}

		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO schema_migrations(version) VALUES (?)`, mf.Version); err != nil {
			return fmt.Errorf("record migration %d: %w", mf.Version, err)
		}
	}

	return nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version     INTEGER PRIMARY KEY,
	applied_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`)
	return err
}

type migrationFile struct {
	Version int
	Name    string
}

func readMigrationFiles(fsys fs.FS) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var out []migrationFile
	seen := map[int]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".sql") {
			continue
		}
		ver, ok := parseVersionPrefix(name)
		if !ok {
			continue
		}
		if prev, dup := seen[ver]; dup {
			return nil, fmt.Errorf("duplicate migration version %d in %s and %s", ver, prev, name)
		}
		seen[ver] = name
		out = append(out, migrationFile{Version: ver, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseVersionPrefix reads the leading digits of names like "001_initial.sql".
func parseVersionPrefix(name string) (int, bool) {
	i := 0
	for i < len(name) && unicode.IsDigit(rune(name[i])) {
		i++
	}
	if i == 0 {
		return 0, false
	}
	ver, err := strconv.Atoi(name[:i])
	if err != nil {
		return 0, false
	}
	return ver, true
}

func loadAppliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v intColumn
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[int(v.Int64)] = true
	}
	return applied, rows.Err()
}

// applySQL executes a script statement by statement with explicit transaction control
// removed; rqlite rejects nested BEGIN/COMMIT over its HTTP API.
func applySQL(ctx context.Context, db *sql.DB, script string) error {
	for _, stmt := range splitSQLStatements(script) {
		if isTxnControl(stmt) {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec stmt failed: %w (stmt: %s)", err, snippet(stmt))
		}
	}
	return nil
}

func isTxnControl(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BEGIN", "BEGIN TRANSACTION", "COMMIT", "END", "ROLLBACK":
		return true
	default:
		return false
	}
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

// splitSQLStatements splits a script on semicolons, ignoring those inside quoted strings
// and dropping -- and /* */ comments.
func splitSQLStatements(in string) []string {
	var (
		out                []string
		b                  strings.Builder
		lineComment, block bool
		inSingle, inDouble bool
	)

	flush := func() {
		if stmt := strings.TrimSpace(b.String()); stmt != "" {
			out = append(out, stmt)
		}
		b.Reset()
	}

	runes := []rune(in)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case lineComment:
			if ch == '\n' {
				lineComment = false
				b.WriteRune('\n')
			}
			continue
		case block:
			if ch == '*' && next == '/' {
				block = false
				i++
			}
			continue
		}

		if !inSingle && !inDouble {
			if ch == '-' && next == '-' {
				lineComment = true
				i++
				continue
			}
			if ch == '/' && next == '*' {
				block = true
				i++
				continue
			}
			if ch == ';' {
				flush()
				continue
			}
		}

		switch {
		case ch == '\'' && !inDouble:
			if inSingle && next == '\'' {
				b.WriteString("''")
				i++
				continue
			}
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			if inDouble && next == '"' {
				b.WriteString(`""`)
				i++
				continue
			}
			inDouble = !inDouble
		}
		b.WriteRune(ch)
	}

	flush()
	return out
}
