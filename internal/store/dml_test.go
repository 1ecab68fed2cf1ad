package store

import "testing"

func TestClausePostgres(t *testing.T) {
	d := &PostgresDialect{}
	where, args := Clause(d, "id = %1 AND slug = %2", int64(5), "yellow")
	if where != "id = $1 AND slug = $2" {
		t.Fatalf("where = %q", where)
	}
	if len(args) != 2 || args[0] != int64(5) || args[1] != "yellow" {
		t.Fatalf("args = %v", args)
	}
}

func TestClauseSQLite(t *testing.T) {
	d := &SQLiteDialect{}
	where, _ := Clause(d, "model_id = %1 AND type = %2")
	if where != "model_id = ?1 AND type = ?2" {
		t.Fatalf("where = %q", where)
	}
}

func TestClauseOffset(t *testing.T) {
	d := &PostgresDialect{}
	// a where clause appended after two already-bound SET parameters
	if got := clauseOffset(d, "id = %1", 2); got != "id = $3" {
		t.Fatalf("clauseOffset = %q", got)
	}
}

func TestParamBuilders(t *testing.T) {
	pg := (&PostgresDialect{}).NewParamBuilder()
	if ph := pg.Add("a"); ph != "$1" {
		t.Fatalf("pg placeholder = %q", ph)
	}
	if ph := pg.Add("b"); ph != "$2" {
		t.Fatalf("pg placeholder = %q", ph)
	}
	if pg.Count() != 2 || len(pg.Params()) != 2 {
		t.Fatal("pg builder lost params")
	}

	sq := (&SQLiteDialect{}).NewParamBuilder()
	if ph := sq.Add(1); ph != "?1" {
		t.Fatalf("sqlite placeholder = %q", ph)
	}
}

func TestCheckIdent(t *testing.T) {
	good := []string{"yellow", "zap_id", "_hidden", "a1"}
	for _, n := range good {
		if err := checkIdent(n); err != nil {
			t.Errorf("checkIdent(%q) = %v", n, err)
		}
	}
	bad := []string{"", "1abc", "Yellow", "a-b", "a b", "a;drop"}
	for _, n := range bad {
		if err := checkIdent(n); err == nil {
			t.Errorf("checkIdent(%q) passed, want error", n)
		}
	}
}

func TestColumnSpecDDL(t *testing.T) {
	pg := &PostgresDialect{}
	sq := &SQLiteDialect{}

	id := ColumnSpec{Name: "id", Type: "serial"}
	if got := id.DDL(pg); got != "id SERIAL PRIMARY KEY" {
		t.Fatalf("pg id DDL = %q", got)
	}
	if got := id.DDL(sq); got != "id INTEGER PRIMARY KEY AUTOINCREMENT" {
		t.Fatalf("sqlite id DDL = %q", got)
	}

	ts := ColumnSpec{Name: "created_at", Type: "timestamp", Extra: "NOT NULL DEFAULT CURRENT_TIMESTAMP"}
	if got := ts.DDL(pg); got != "created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP" {
		t.Fatalf("pg timestamp DDL = %q", got)
	}
}

func TestAddColumnExtra(t *testing.T) {
	pg := &PostgresDialect{}
	sq := &SQLiteDialect{}
	extra := "NOT NULL DEFAULT CURRENT_TIMESTAMP"
	if got := pg.AddColumnExtra(extra); got != extra {
		t.Fatalf("pg AddColumnExtra = %q", got)
	}
	// SQLite rejects non-constant defaults in ALTER TABLE ADD COLUMN
	if got := sq.AddColumnExtra(extra); got != "" {
		t.Fatalf("sqlite AddColumnExtra = %q", got)
	}
	if got := sq.AddColumnExtra("NOT NULL DEFAULT 0"); got != "NOT NULL DEFAULT 0" {
		t.Fatalf("sqlite constant extra = %q", got)
	}
}
