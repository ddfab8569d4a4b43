package history

import (
	"database/sql"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    at             DATETIME NOT NULL,
    results_count  INTEGER NOT NULL DEFAULT 0,
    denied_count   INTEGER NOT NULL DEFAULT 0,
    crit_count     INTEGER NOT NULL DEFAULT 0,
    warn_count     INTEGER NOT NULL DEFAULT 0,
    error_count    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS results (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id),
    kind        TEXT NOT NULL DEFAULT '',
    namespace   TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL DEFAULT '',
    source      TEXT NOT NULL DEFAULT '',
    allowed     BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS violations (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    result_id INTEGER NOT NULL REFERENCES results(id),
    code      TEXT NOT NULL DEFAULT '',
    severity  TEXT NOT NULL DEFAULT '',
    message   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_results_snapshot ON results(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_results_trend ON results(kind, namespace, name);
CREATE INDEX IF NOT EXISTS idx_violations_result ON violations(result_id);
CREATE INDEX IF NOT EXISTS idx_violations_code ON violations(code);
`

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	// v2: carry remediation context alongside violations (idempotent)
	for _, stmt := range []string{
		"ALTER TABLE violations ADD COLUMN owner TEXT DEFAULT ''",
		"ALTER TABLE violations ADD COLUMN fix TEXT DEFAULT ''",
	} {
		if _, err := db.Exec(stmt); err != nil && !isDuplicateColumn(err) {
			return err
		}
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	// SQLite returns "duplicate column name" when the column already exists.
	msg := err.Error()
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
