package cmdfmt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// jsonPrinter buffers rows as objects keyed by column name and renders them as one JSON list.
type jsonPrinter struct {
	columns []table.ColumnConfig
	rows    []map[string]any
	pretty  bool
}

func newJSONPrinter(pretty bool) *jsonPrinter {
	return &jsonPrinter{
		rows:   []map[string]any{},
		pretty: pretty,
	}
}

func (p *jsonPrinter) SetColumnConfigs(configs []table.ColumnConfig) {
	p.columns = configs
}

func (p *jsonPrinter) AppendRow(row table.Row, configs ...table.RowConfig) {
	p.rows = append(p.rows, rowObject(p.columns, row))
}

func (p *jsonPrinter) Render() string {
	out, err := marshal(p.rows, p.pretty)
	if err != nil {
		panic("unable to marshal json (this is likely a bug): " + err.Error())
	}
	return string(out)
}

// rowObject maps the values of visible columns to their JSON keys.
func rowObject(columns []table.ColumnConfig, row []any) map[string]any {
	if len(columns) != len(row) {
		panic(fmt.Sprintf("unable to print json, the number of keys %d does not match the number of values %d (this is likely a bug)", len(columns), len(row)))
	}
	item := make(map[string]any, len(row))
	for i, col := range columns {
		if col.Hidden {
			continue
		}
		item[jsonKey(col.Name)] = row[i]
	}
	return item
}

// jsonKey turns a column header like "free %" or "admin name" into "free_pct" or "admin_name".
func jsonKey(column string) string {
	column = strings.ReplaceAll(column, "%", "pct")
	return strings.Join(strings.Fields(column), "_")
}

func marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
