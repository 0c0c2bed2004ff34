package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output печатает результаты команд: данные в stdout (таблица или JSON),
// сообщения о ходе работы в stderr.
type Output struct {
	jsonMode bool
	stdout   io.Writer
	stderr   io.Writer
}

// NewOutput пишет в os.Stdout и os.Stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(os.Stdout, os.Stderr, jsonMode)
}

// NewOutputTo пишет в заданные writer'ы.
func NewOutputTo(stdout, stderr io.Writer, jsonMode bool) *Output {
	return &Output{jsonMode: jsonMode, stdout: stdout, stderr: stderr}
}

// Print выводит data как JSON в режиме --json, иначе таблицу из headers и rows.
func (o *Output) Print(headers []string, rows [][]string, data any) {
	if o.jsonMode {
		o.JSON(data)
	} else {
		o.Table(headers, rows)
	}
}

// Table выравнивает колонки; под заголовком строка из дефисов.
// Пустые ячейки печатаются как "-".
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	underline := make([]string, len(headers))
	for i, h := range headers {
		underline[i] = strings.Repeat("-", len(h))
	}

	writeRow(tw, headers)
	writeRow(tw, underline)
	for _, row := range rows {
		writeRow(tw, row)
	}
}

func writeRow(w io.Writer, cells []string) {
	line := make([]string, len(cells))
	for i, c := range cells {
		if c == "" {
			c = "-"
		}
		line[i] = c
	}
	fmt.Fprintln(w, strings.Join(line, "\t"))
}

// JSON печатает v с отступами. json.RawMessage выводится переформатированным.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(o.stderr, "Error: encode output: %v\n", err)
	}
}

// Success печатает сообщение о результате в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.stderr, msg)
}
