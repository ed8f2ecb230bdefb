package cmdfmt

import (
	"fmt"
	"os"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spectrumscale/scale-go/ctl/pkg/config"
	"github.com/spf13/viper"
)

type rowWriter interface {
	SetColumnConfigs(configs []table.ColumnConfig)
	AppendRow(row table.Row, configs ...table.RowConfig)
	Render() string
}

// Printomatic prints items either as a table or as JSON depending on the output setting. Items are
// buffered and flushed every page-size items. Columns not selected with --columns (or the defaults)
// are hidden.
type Printomatic struct {
	columns  []table.ColumnConfig
	header   table.Row
	output   config.OutputType
	pageSize uint
	buffered uint
	writer   rowWriter
}

func NewPrintomatic(allColumns []string, defaultColumns []string) Printomatic {
	selected := viper.GetStringSlice(config.ColumnsKey)
	if len(selected) == 0 {
		selected = defaultColumns
	}
	all := slices.Contains(selected, "all")

	p := Printomatic{
		output:   config.OutputType(viper.GetString(config.OutputKey)),
		pageSize: viper.GetUint(config.PageSizeKey),
		header:   table.Row{},
	}
	for _, c := range allColumns {
		p.columns = append(p.columns, table.ColumnConfig{Name: c, Hidden: !all && !slices.Contains(selected, c)})
		p.header = append(p.header, c)
	}
	p.reset()
	return p
}

func (p *Printomatic) reset() {
	p.buffered = 0
	switch p.output {
	case config.OutputJSON, config.OutputJSONPretty:
		p.writer = newJSONPrinter(p.output == config.OutputJSONPretty)
	case config.OutputNDJSON:
		p.writer = nil
	default:
		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.Style().Options.SeparateRows = false
		t.Style().Options.DrawBorder = false
		if p.pageSize > 0 {
			t.AppendHeader(p.header)
		}
		p.writer = t
	}
	if p.writer != nil {
		p.writer.SetColumnConfigs(p.columns)
	}
}

// AddItem adds one row. The number of values must match the number of columns.
func (p *Printomatic) AddItem(values ...any) {
	if p.output == config.OutputNDJSON {
		line, err := marshal(rowObject(p.columns, values), false)
		if err != nil {
			panic("unable to marshal json (this is likely a bug): " + err.Error())
		}
		fmt.Println(string(line))
		return
	}
	p.writer.AppendRow(values)
	p.buffered++
	if p.pageSize == 0 || p.buffered >= p.pageSize {
		p.PrintRemaining()
	}
}

// PrintRemaining prints all buffered rows.
func (p *Printomatic) PrintRemaining() {
	if p.writer == nil || p.buffered == 0 {
		return
	}
	fmt.Println(p.writer.Render())
	p.reset()
}

// Printf prints informational messages. When structured output is requested messages are written
// to stderr so stdout only contains the structured data.
func Printf(format string, a ...any) {
	if Structured() {
		fmt.Fprintf(os.Stderr, format, a...)
		return
	}
	fmt.Printf(format, a...)
}

// Structured is true if JSON output was requested.
func Structured() bool {
	switch config.OutputType(viper.GetString(config.OutputKey)) {
	case config.OutputJSON, config.OutputJSONPretty, config.OutputNDJSON:
		return true
	}
	return false
}

// PrintResult prints a single structured result. Tables are not used, instead JSON output is
// always used since results are typically nested.
func PrintResult(v any) error {
	out, err := marshal(v, config.OutputType(viper.GetString(config.OutputKey)) == config.OutputJSONPretty)
	if err != nil {
		return fmt.Errorf("unable to marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
