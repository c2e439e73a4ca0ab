package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3"

	mlerrors "github.com/missionlens/missionlens/internal/errors"
	"github.com/missionlens/missionlens/pkg/types"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// readSQLite reads every row of the missions table of a SQLite database.
// The database is opened read-only and immutable.
func readSQLite(ctx context.Context, path string, o options) (*collector, error) {
	if !identRe.MatchString(o.sqliteTable) {
		return nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable,
			fmt.Sprintf("invalid table name %q", o.sqliteTable), nil)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable,
			fmt.Sprintf("open %s", path), err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", o.sqliteTable))
	if err != nil {
		return nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable,
			fmt.Sprintf("query table %s of %s", o.sqliteTable, path), err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable, "read columns", err)
	}
	cols, err := resolveHeader(names)
	if err != nil {
		return nil, err
	}

	c := newCollector(o)
	values := make([]sql.NullString, len(names))
	dest := make([]interface{}, len(names))
	for i := range values {
		dest[i] = &values[i]
	}

	line := 0
	for rows.Next() {
		line++
		if err := rows.Scan(dest...); err != nil {
			c.reject(&mlerrors.RowParseError{Line: line, Reason: err.Error()})
			continue
		}

		row := rawRow{line: line, values: make(map[types.Column]string, len(cols))}
		for i, col := range cols {
			if col != "" && values[i].Valid {
				row.values[col] = values[i].String
			}
		}
		c.add(row)
	}
	if err := rows.Err(); err != nil {
		return nil, mlerrors.NewLoadError(mlerrors.CodeSourceUnreadable,
			fmt.Sprintf("read table %s", o.sqliteTable), err)
	}

	return c, nil
}
