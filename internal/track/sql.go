package track

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect selects the placeholder style and DDL type names per backend.
type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgreSQL
)

func (d dialect) placeholder(i int) string {
	if d == dialectPostgreSQL {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

func (d dialect) columnType(t ColumnType) string {
	switch t {
	case ColumnUUID:
		if d == dialectPostgreSQL {
			return "UUID"
		}
		return "TEXT"
	case ColumnInteger:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func columnNames(d *Descriptor) []string {
	cols := make([]string, 0, len(d.Columns)+1)
	cols = append(cols, d.Key.Name)
	for _, c := range d.Columns {
		cols = append(cols, c.Name)
	}
	return cols
}

func insertStmt(d *Descriptor, dl dialect) string {
	cols := columnNames(d)
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = dl.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Table, strings.Join(cols, ", "), strings.Join(ph, ", "))
}

func updateStmt(d *Descriptor, dl dialect) string {
	sets := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		sets[i] = fmt.Sprintf("%s = %s", c.Name, dl.placeholder(i+1))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		d.Table, strings.Join(sets, ", "), d.Key.Name, dl.placeholder(len(d.Columns)+1))
}

func selectStmt(d *Descriptor, dl dialect, whereCol string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(columnNames(d), ", "), d.Table, whereCol, dl.placeholder(1))
}

func firstStmt(d *Descriptor, dl dialect, whereCol string) string {
	if whereCol == "" {
		return fmt.Sprintf("SELECT %s FROM %s LIMIT 1",
			strings.Join(columnNames(d), ", "), d.Table)
	}
	return selectStmt(d, dl, whereCol) + " LIMIT 1"
}

func relationStmt(target *Descriptor, dl dialect, foreignKey, orderBy string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s ORDER BY %s",
		strings.Join(columnNames(target), ", "), target.Table, foreignKey, dl.placeholder(1), orderBy)
}

func createTableStmt(d *Descriptor, dl dialect) string {
	lines := make([]string, 0, len(d.Columns)+1)
	lines = append(lines, fmt.Sprintf("%s %s PRIMARY KEY", d.Key.Name, dl.columnType(d.Key.Type)))
	for _, c := range d.Columns {
		line := c.Name + " " + dl.columnType(c.Type)
		if c.NotNull {
			line += " NOT NULL"
		}
		if c.References != "" {
			line += " REFERENCES " + c.References
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", d.Table, strings.Join(lines, ",\n\t"))
}

func dropTableStmt(d *Descriptor) string {
	return "DROP TABLE IF EXISTS " + d.Table
}
