package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MisakaVan/code-index/internal/index"
	"github.com/MisakaVan/code-index/internal/symbol"
)

// SQLiteStrategy persists the index relationally: a symbols table keyed by
// name, child tables for definitions and references, an annotations table,
// and a meta table carrying the generation counter. A save replaces the
// whole snapshot inside one transaction.
type SQLiteStrategy struct{}

func NewSQLiteStrategy() *SQLiteStrategy { return &SQLiteStrategy{} }

func (s *SQLiteStrategy) Name() string { return "sqlite" }

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS symbols (
  id    INTEGER PRIMARY KEY,
  name  TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS definitions (
  id              INTEGER PRIMARY KEY,
  symbol_id       INTEGER NOT NULL REFERENCES symbols(id),
  file            TEXT NOT NULL,
  start_line      INTEGER NOT NULL,
  start_col       INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  end_col         INTEGER NOT NULL,
  kind            TEXT NOT NULL,
  qualifier       TEXT NOT NULL DEFAULT '',
  signature       TEXT NOT NULL DEFAULT '',
  is_declaration  BOOLEAN NOT NULL DEFAULT FALSE,
  seq             INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS "references" (
  id              INTEGER PRIMARY KEY,
  symbol_id       INTEGER NOT NULL REFERENCES symbols(id),
  file            TEXT NOT NULL,
  start_line      INTEGER NOT NULL,
  start_col       INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  end_col         INTEGER NOT NULL,
  caller_context  TEXT NOT NULL DEFAULT '',
  signature       TEXT NOT NULL DEFAULT '',
  seq             INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS annotations (
  id          INTEGER PRIMARY KEY,
  symbol_id   INTEGER NOT NULL REFERENCES symbols(id),
  file        TEXT NOT NULL,
  start_line  INTEGER NOT NULL,
  start_col   INTEGER NOT NULL,
  end_line    INTEGER NOT NULL,
  end_col     INTEGER NOT NULL,
  summary     TEXT NOT NULL,
  detail      TEXT
);

CREATE TABLE IF NOT EXISTS call_edges (
  id             INTEGER PRIMARY KEY,
  caller_def_id  INTEGER REFERENCES definitions(id),
  callee_def_id  INTEGER NOT NULL REFERENCES definitions(id),
  site_file      TEXT NOT NULL,
  site_line      INTEGER NOT NULL,
  site_col       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
  key    TEXT PRIMARY KEY,
  value  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_definitions_symbol ON definitions(symbol_id);
CREATE INDEX IF NOT EXISTS idx_references_symbol ON "references"(symbol_id);
`

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (s *SQLiteStrategy) Save(idx *index.Index, path string) error {
	if err := ensureParentDir(path); err != nil {
		return &PersistenceError{Medium: "sqlite", Path: path, Op: "save", Err: err}
	}
	db, err := openSQLite(path)
	if err != nil {
		return &PersistenceError{Medium: "sqlite", Path: path, Op: "save", Err: err}
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return &PersistenceError{Medium: "sqlite", Path: path, Op: "save", Err: fmt.Errorf("migrate: %w", err)}
	}
	if err := s.saveTx(db, idx); err != nil {
		return &PersistenceError{Medium: "sqlite", Path: path, Op: "save", Err: err}
	}
	return nil
}

func (s *SQLiteStrategy) saveTx(db *sql.DB, idx *index.Index) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Full replacement: a snapshot is the whole index, not a delta.
	for _, table := range []string{`call_edges`, `annotations`, `"references"`, `definitions`, `symbols`, `meta`} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	type defKey struct {
		name string
		loc  symbol.Location
	}
	symIDs := make(map[string]int64)
	defIDs := make(map[defKey]int64)
	for _, name := range idx.AllSymbols() {
		res, err := tx.Exec(`INSERT INTO symbols (name) VALUES (?)`, name)
		if err != nil {
			return fmt.Errorf("insert symbol %s: %w", name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("symbol id %s: %w", name, err)
		}
		symIDs[name] = id

		m := idx.FindByExactName(name)
		for i, d := range m.Definitions {
			res, err := tx.Exec(
				`INSERT INTO definitions
				   (symbol_id, file, start_line, start_col, end_line, end_col,
				    kind, qualifier, signature, is_declaration, seq)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, d.Location.File, d.Location.StartLine, d.Location.StartCol,
				d.Location.EndLine, d.Location.EndCol,
				string(d.Kind), d.Qualifier, d.Signature, d.IsDeclaration, i,
			)
			if err != nil {
				return fmt.Errorf("insert definition %s: %w", name, err)
			}
			defID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("definition id %s: %w", name, err)
			}
			defIDs[defKey{name: name, loc: d.Location}] = defID
		}
		for i, r := range m.References {
			_, err := tx.Exec(
				`INSERT INTO "references"
				   (symbol_id, file, start_line, start_col, end_line, end_col,
				    caller_context, signature, seq)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, r.Location.File, r.Location.StartLine, r.Location.StartCol,
				r.Location.EndLine, r.Location.EndCol,
				r.CallerContext, r.Signature, i,
			)
			if err != nil {
				return fmt.Errorf("insert reference %s: %w", name, err)
			}
		}
	}

	for _, a := range idx.Annotations() {
		var detail any
		if len(a.Note.Detail) > 0 {
			blob, err := json.Marshal(a.Note.Detail)
			if err != nil {
				return fmt.Errorf("encode annotation detail %s: %w", a.Name, err)
			}
			detail = string(blob)
		}
		_, err := tx.Exec(
			`INSERT INTO annotations
			   (symbol_id, file, start_line, start_col, end_line, end_col, summary, detail)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			symIDs[a.Name], a.Location.File, a.Location.StartLine, a.Location.StartCol,
			a.Location.EndLine, a.Location.EndCol, a.Note.Summary, detail,
		)
		if err != nil {
			return fmt.Errorf("insert annotation %s: %w", a.Name, err)
		}
	}

	// Materialize the resolved call graph for at-rest querying. Edges are
	// derived data: Load ignores this table and re-resolves from entries.
	for _, e := range idx.CallEdges() {
		calleeID, ok := defIDs[defKey{name: e.Callee, loc: e.Target}]
		if !ok {
			continue
		}
		var callerID any
		for _, d := range idx.FindByExactName(e.Caller).Definitions {
			if d.Location.File == e.Site.File &&
				d.Location.StartLine <= e.Site.StartLine &&
				e.Site.StartLine <= d.Location.EndLine {
				callerID = defIDs[defKey{name: e.Caller, loc: d.Location}]
				break
			}
		}
		if _, err := tx.Exec(
			`INSERT INTO call_edges (caller_def_id, callee_def_id, site_file, site_line, site_col)
			 VALUES (?, ?, ?, ?, ?)`,
			callerID, calleeID, e.Site.File, e.Site.StartLine, e.Site.StartCol,
		); err != nil {
			return fmt.Errorf("insert call edge %s->%s: %w", e.Caller, e.Callee, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO meta (key, value) VALUES ('generation', ?)`,
		fmt.Sprintf("%d", idx.Generation()),
	); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStrategy) Load(path string) (*index.Index, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, &PersistenceError{Medium: "sqlite", Path: path, Op: "load", Err: err}
	}
	defer db.Close()

	idx, err := s.loadAll(db)
	if err != nil {
		return nil, &PersistenceError{Medium: "sqlite", Path: path, Op: "load", Err: err}
	}
	return idx, nil
}

func (s *SQLiteStrategy) loadAll(db *sql.DB) (*index.Index, error) {
	idx := index.New()

	names := make(map[int64]string)
	rows, err := db.Query(`SELECT id, name FROM symbols`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}
	rows.Close()

	rows, err = db.Query(
		`SELECT symbol_id, file, start_line, start_col, end_line, end_col,
		        kind, qualifier, signature, is_declaration
		   FROM definitions ORDER BY symbol_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("query definitions: %w", err)
	}
	for rows.Next() {
		var symID int64
		var d symbol.Definition
		var kind string
		if err := rows.Scan(&symID, &d.Location.File,
			&d.Location.StartLine, &d.Location.StartCol,
			&d.Location.EndLine, &d.Location.EndCol,
			&kind, &d.Qualifier, &d.Signature, &d.IsDeclaration); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		d.Name = names[symID]
		d.Kind = symbol.Kind(kind)
		if err := idx.AddDefinition(d); err != nil {
			rows.Close()
			return nil, fmt.Errorf("restore definition %s: %w", d.Name, err)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate definitions: %w", err)
	}
	rows.Close()

	rows, err = db.Query(
		`SELECT symbol_id, file, start_line, start_col, end_line, end_col,
		        caller_context, signature
		   FROM "references" ORDER BY symbol_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	for rows.Next() {
		var symID int64
		var r symbol.Reference
		if err := rows.Scan(&symID, &r.Location.File,
			&r.Location.StartLine, &r.Location.StartCol,
			&r.Location.EndLine, &r.Location.EndCol,
			&r.CallerContext, &r.Signature); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		r.Name = names[symID]
		if err := idx.AddReference(r); err != nil {
			rows.Close()
			return nil, fmt.Errorf("restore reference %s: %w", r.Name, err)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	rows.Close()

	rows, err = db.Query(
		`SELECT symbol_id, file, start_line, start_col, end_line, end_col, summary, detail
		   FROM annotations`)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	for rows.Next() {
		var symID int64
		var loc symbol.Location
		var note symbol.Note
		var detail sql.NullString
		if err := rows.Scan(&symID, &loc.File,
			&loc.StartLine, &loc.StartCol, &loc.EndLine, &loc.EndCol,
			&note.Summary, &detail); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		if detail.Valid && detail.String != "" {
			if err := json.Unmarshal([]byte(detail.String), &note.Detail); err != nil {
				rows.Close()
				return nil, fmt.Errorf("decode annotation detail: %w", err)
			}
		}
		if err := idx.Annotate(names[symID], loc, note); err != nil {
			rows.Close()
			return nil, fmt.Errorf("restore annotation %s: %w", names[symID], err)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	rows.Close()

	var genText string
	err = db.QueryRow(`SELECT value FROM meta WHERE key = 'generation'`).Scan(&genText)
	switch {
	case err == sql.ErrNoRows:
		// Pre-counter snapshot; leave the replay-derived value in place.
	case err != nil:
		return nil, fmt.Errorf("query meta: %w", err)
	default:
		var gen uint64
		if _, err := fmt.Sscanf(genText, "%d", &gen); err != nil {
			return nil, fmt.Errorf("parse generation %q: %w", genText, err)
		}
		idx.SetGeneration(gen)
	}
	return idx, nil
}
