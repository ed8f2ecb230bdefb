package mmcmd

import (
	"net/url"
	"strconv"
	"strings"
)

const headerMarker = "HEADER"

// Record is one data row of machine readable (-Y) output keyed by column name.
type Record map[string]string

func (r Record) Get(column string) string {
	return r[column]
}

// Int returns the column parsed as an integer or zero if it is empty or invalid.
func (r Record) Int(column string) int {
	i, _ := strconv.Atoi(strings.TrimSpace(r[column]))
	return i
}

// Uint returns the column parsed as an unsigned integer or zero if it is empty or invalid.
func (r Record) Uint(column string) uint64 {
	u, _ := strconv.ParseUint(strings.TrimSpace(r[column]), 10, 64)
	return u
}

// Bool is true if the column is "yes" in any case.
func (r Record) Bool(column string) bool {
	return strings.EqualFold(strings.TrimSpace(r[column]), "yes")
}

// Group is the set of rows that share the same value in a key column.
type Group struct {
	Key  string
	Rows []Record
}

// Table holds all rows of -Y output grouped by data type in the order they were first seen.
//
// Every line has the form "command:datatype:HEADER|0:version:reserved:reserved:col...". The first
// line of each data type is a header naming the columns, the remaining lines are data. Commands
// that only emit a single data type leave the second field empty and the command name is used as
// the data type instead.
type Table struct {
	order []string
	rows  map[string][]Record
}

func Parse(output string) *Table {
	t := &Table{order: []string{}, rows: map[string][]Record{}}
	headers := map[string][]string{}

	for _, line := range strings.Split(output, "\n") {
		values := strings.Split(strings.TrimRight(line, "\r"), ":")
		if len(values) < 3 {
			continue
		}
		datatype := values[1]
		if datatype == "" {
			datatype = values[0]
		}
		if values[2] == headerMarker {
			headers[datatype] = values
			continue
		}
		columns, ok := headers[datatype]
		if !ok {
			continue
		}
		record := Record{}
		for i := 3; i < len(columns) && i < len(values); i++ {
			column := columns[i]
			if column == "" || column == "reserved" {
				continue
			}
			record[column] = decodeValue(values[i])
		}
		if _, seen := t.rows[datatype]; !seen {
			t.order = append(t.order, datatype)
		}
		t.rows[datatype] = append(t.rows[datatype], record)
	}
	return t
}

func decodeValue(v string) string {
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}

func (t *Table) Datatypes() []string {
	return append([]string{}, t.order...)
}

func (t *Table) Rows(datatype string) []Record {
	return t.rows[datatype]
}

// AllRows returns the rows of every data type.
func (t *Table) AllRows() []Record {
	all := []Record{}
	for _, dt := range t.order {
		all = append(all, t.rows[dt]...)
	}
	return all
}

// Summary returns the single record of a summary data type. If the data type was reported more
// than once the last row wins.
func (t *Table) Summary(datatype string) (Record, bool) {
	rows := t.rows[datatype]
	if len(rows) == 0 {
		return nil, false
	}
	return rows[len(rows)-1], true
}

// GroupBy groups all rows of every data type by the value of the key column. Groups are ordered by
// first appearance.
func (t *Table) GroupBy(key string) []Group {
	groups := []Group{}
	index := map[string]int{}
	for _, row := range t.AllRows() {
		k := row[key]
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	return groups
}
