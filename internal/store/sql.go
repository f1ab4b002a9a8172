package store

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/pastegrid/internal/core"
	"github.com/JonMunkholm/pastegrid/internal/grid"
)

type statement struct {
	sql  string
	args []any
	key  any // identity value, for error messages
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// selectQuery reads every column of the table. It returns the column ids in
// select order.
func selectQuery(def core.TableDefinition) (string, []string) {
	ids := make([]string, len(def.Columns))
	cols := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		ids[i] = c.ID
		cols[i] = quoteIdentifier(def.DBColumn(c.ID))
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdentifier(def.DBTable))
	if def.IdentityColumn != "" {
		query += " ORDER BY " + quoteIdentifier(def.DBColumn(def.IdentityColumn))
	}
	return query, ids
}

// updateQuery writes the record's keys, in column order, to the row with the
// record's identity. The statement is empty when there is nothing to set.
func updateQuery(def core.TableDefinition, rec grid.Record) (statement, error) {
	key, ok := rec[def.IdentityColumn]
	if !ok || key == nil {
		return statement{}, ErrMissingIdentity
	}

	var sets []string
	var args []any
	for _, c := range def.Columns {
		if c.ID == def.IdentityColumn {
			continue
		}
		v, ok := rec[c.ID]
		if !ok {
			continue
		}
		args = append(args, toDB(v, c))
		sets = append(sets, fmt.Sprintf("%s = $%d", quoteIdentifier(def.DBColumn(c.ID)), len(args)))
	}
	if len(sets) == 0 {
		return statement{key: key}, nil
	}

	identity, _ := def.Column(def.IdentityColumn)
	args = append(args, toDB(key, identity))
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quoteIdentifier(def.DBTable),
		strings.Join(sets, ", "),
		quoteIdentifier(def.DBColumn(def.IdentityColumn)),
		len(args),
	)
	return statement{sql: query, args: args, key: key}, nil
}

// insertQuery inserts the record's keys in column order. The identity column
// is left to the database.
func insertQuery(def core.TableDefinition, rec grid.Record) statement {
	var cols, params []string
	var args []any
	for _, c := range def.Columns {
		if c.ID == def.IdentityColumn {
			continue
		}
		v, ok := rec[c.ID]
		if !ok {
			continue
		}
		args = append(args, toDB(v, c))
		cols = append(cols, quoteIdentifier(def.DBColumn(c.ID)))
		params = append(params, fmt.Sprintf("$%d", len(args)))
	}

	table := quoteIdentifier(def.DBTable)
	if len(cols) == 0 {
		return statement{sql: fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table)}
	}
	return statement{
		sql:  fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(params, ", ")),
		args: args,
	}
}

// toDB converts a domain value to a query argument. Whole numbers bound for
// an integer column go as int64; dates go as pgtype.Date.
func toDB(v any, col grid.Column) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case time.Time:
		if col.Type == grid.CellDate {
			return pgtype.Date{Time: x, Valid: true}
		}
		return x
	default:
		return v
	}
}

// fromDB converts a scanned value to the domain types the engine expects:
// numbers as float64, dates as time.Time, arrays as []string.
func fromDB(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Date:
		if !x.Valid {
			return nil
		}
		return x.Time
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if e == nil {
				continue
			}
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return v
	}
}
