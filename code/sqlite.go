package code

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nevindra/codeloop"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// noOutputSentinel is returned when a batch prints nothing.
const noOutputSentinel = "executed successfully"

// readPrefixes mark statements whose rows are printed.
var readPrefixes = []string{"SELECT", "WITH", "VALUES", "PRAGMA", "EXPLAIN"}

// sqlStrategy runs a batch against a fresh in-memory SQLite database that
// lives only for the duration of one call. No timeout is applied.
type sqlStrategy struct {
	logger *slog.Logger
}

func (s *sqlStrategy) run(ctx context.Context, src string) codeloop.ExecResult {
	stmts := splitStatements(src)
	if len(stmts) == 0 {
		return codeloop.Ok(noOutputSentinel)
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return codeloop.Fail(codeloop.KindLaunch, fmt.Sprintf("open in-memory database: %v", err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.Warn("code: close in-memory database", "error", err)
		}
	}()
	// Every pooled connection to :memory: is a separate database, so the
	// whole batch is pinned to one.
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		return codeloop.Fail(codeloop.KindLaunch, fmt.Sprintf("open in-memory database: %v", err))
	}
	defer conn.Close()

	var out strings.Builder
	for _, stmt := range stmts {
		if isReadQuery(stmt) {
			err = writeTable(ctx, conn, stmt, &out)
		} else {
			_, err = conn.ExecContext(ctx, stmt)
		}
		if err != nil {
			return codeloop.Fail(codeloop.KindRuntime, fmt.Sprintf("%v in statement: %s", err, stmt))
		}
	}

	if out.Len() == 0 {
		return codeloop.Ok(noOutputSentinel)
	}
	return codeloop.Ok(out.String())
}

func isReadQuery(stmt string) bool {
	upper := strings.ToUpper(stmt)
	for _, p := range readPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// writeTable runs stmt and appends its rows as a " | "-separated table
// followed by a blank line. Statements without result columns print nothing.
func writeTable(ctx context.Context, conn *sql.Conn, stmt string, out *strings.Builder) error {
	rows, err := conn.QueryContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		for rows.Next() {
		}
		return rows.Err()
	}

	header := strings.Join(cols, " | ")
	var table strings.Builder
	table.WriteString(header)
	table.WriteByte('\n')
	table.WriteString(strings.Repeat("-", utf8.RuneCountInString(header)))
	table.WriteByte('\n')

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	cells := make([]string, len(cols))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for i, v := range values {
			cells[i] = formatCell(v)
		}
		table.WriteString(strings.Join(cells, " | "))
		table.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return err
	}

	out.WriteString(table.String())
	out.WriteByte('\n')
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// splitStatements removes "--" and "/* */" comments, collapses whitespace
// runs to one space and splits on ";". Quoted strings and identifiers are
// copied verbatim.
func splitStatements(src string) []string {
	var (
		stmts []string
		cur   strings.Builder
		space bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
		space = false
	}

	r := []rune(src)
	for i := 0; i < len(r); i++ {
		c := r[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for j < len(r) {
				if r[j] == c {
					// A doubled quote is an escaped quote.
					if j+1 < len(r) && r[j+1] == c {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= len(r) {
				j = len(r) - 1
			}
			if space && cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(string(r[i : j+1]))
			space = false
			i = j
		case c == '-' && i+1 < len(r) && r[i+1] == '-':
			for i < len(r) && r[i] != '\n' {
				i++
			}
			space = true
		case c == '/' && i+1 < len(r) && r[i+1] == '*':
			i += 2
			for i < len(r) && !(r[i] == '*' && i+1 < len(r) && r[i+1] == '/') {
				i++
			}
			i++ // land on the closing '/'
			space = true
		case c == ';':
			flush()
		case unicode.IsSpace(c):
			space = true
		default:
			if space && cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			space = false
			cur.WriteRune(c)
		}
	}
	flush()
	return stmts
}
