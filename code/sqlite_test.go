package code

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/nevindra/codeloop"
)

func runSQL(t *testing.T, src string) codeloop.ExecResult {
	t.Helper()
	return newTestSandbox(t).Execute(context.Background(), src, codeloop.LangSQL)
}

func TestSQL_SelectTable(t *testing.T) {
	res := runSQL(t, `
CREATE TABLE users (id INTEGER, name TEXT);
INSERT INTO users VALUES (1, 'ada'), (2, 'linus');
SELECT id, name FROM users ORDER BY id;`)
	if !res.OK {
		t.Fatalf("expected success, got %s: %s", res.Kind, res.Message)
	}
	want := "id | name\n---------\n1 | ada\n2 | linus\n\n"
	if res.Output != want {
		t.Errorf("got output %q, want %q", res.Output, want)
	}
}

func TestSQL_StatementsRunInOrder(t *testing.T) {
	res := runSQL(t, `CREATE TABLE t (x INTEGER);
INSERT INTO t VALUES (1);
SELECT count(*) AS n FROM t;
INSERT INTO t VALUES (2);
SELECT count(*) AS n FROM t;`)
	if !res.OK {
		t.Fatalf("expected success, got %s: %s", res.Kind, res.Message)
	}
	want := "n\n-\n1\n\nn\n-\n2\n\n"
	if res.Output != want {
		t.Errorf("got output %q, want %q", res.Output, want)
	}
}

func TestSQL_MissingTable(t *testing.T) {
	res := runSQL(t, "SELECT * FROM t; DROP TABLE t;")
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Kind != codeloop.KindRuntime {
		t.Errorf("got kind %s, want %s", res.Kind, codeloop.KindRuntime)
	}
	if !strings.Contains(res.Message, "no such table") {
		t.Errorf("expected engine message, got: %s", res.Message)
	}
	if !strings.HasSuffix(res.Message, "in statement: SELECT * FROM t") {
		t.Errorf("expected failing statement in message, got: %s", res.Message)
	}
}

func TestSQL_AbortsOnFirstFailure(t *testing.T) {
	res := runSQL(t, `CREATE TABLE t (x INTEGER);
INSERT INTO nope VALUES (1);
SELECT x FROM t;`)
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "in statement: INSERT INTO nope VALUES (1)") {
		t.Errorf("expected second statement to fail, got: %s", res.Message)
	}
	if res.Output != "" {
		t.Errorf("failed batch should not return output, got %q", res.Output)
	}
}

func TestSQL_NoOutputSentinel(t *testing.T) {
	for _, src := range []string{
		"CREATE TABLE t (x INTEGER); INSERT INTO t VALUES (1);",
		"-- nothing but a comment",
	} {
		res := runSQL(t, src)
		if !res.OK || res.Output != noOutputSentinel {
			t.Errorf("%q: got %+v", src, res)
		}
	}
}

func TestSQL_FreshDatabasePerCall(t *testing.T) {
	s := newTestSandbox(t)
	ctx := context.Background()

	if res := s.Execute(ctx, "CREATE TABLE t (x INTEGER);", codeloop.LangSQL); !res.OK {
		t.Fatalf("create: %s", res.Message)
	}
	res := s.Execute(ctx, "SELECT x FROM t;", codeloop.LangSQL)
	if res.OK {
		t.Fatal("table leaked between calls")
	}
}

func TestSQL_NullAndComments(t *testing.T) {
	res := runSQL(t, "/* header */ SELECT NULL AS v, 'a;b' AS s; -- trailing")
	if !res.OK {
		t.Fatalf("expected success, got %s: %s", res.Kind, res.Message)
	}
	want := "v | s\n-----\nNULL | a;b\n\n"
	if res.Output != want {
		t.Errorf("got output %q, want %q", res.Output, want)
	}
}

func TestSQL_EmptySelectKeepsHeader(t *testing.T) {
	res := runSQL(t, "CREATE TABLE t (x INTEGER); SELECT x FROM t;")
	if !res.OK || res.Output != "x\n-\n\n" {
		t.Errorf("got %+v", res)
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "  \n\t ;; ", nil},
		{"single without semicolon", "SELECT 1", []string{"SELECT 1"}},
		{"collapses whitespace", "SELECT\n  a,\n\tb\nFROM   t;", []string{"SELECT a, b FROM t"}},
		{"line comment", "SELECT 1; -- note; not a statement\nSELECT 2;", []string{"SELECT 1", "SELECT 2"}},
		{"block comment", "SELECT /* ; */ 1;", []string{"SELECT 1"}},
		{"semicolon in string", "INSERT INTO t VALUES ('a;b');", []string{"INSERT INTO t VALUES ('a;b')"}},
		{"escaped quote", "SELECT 'it''s';", []string{"SELECT 'it''s'"}},
		{"quoted identifier", `SELECT "my col" FROM t;`, []string{`SELECT "my col" FROM t`}},
		{"string keeps inner spacing", "SELECT 'a   b';", []string{"SELECT 'a   b'"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(tt.src)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitStatements(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}
