package rowfile

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// CSVReader is the default Reader, backed by encoding/csv. The first
// row is treated as the column header; every subsequent row is decoded
// against it positionally.
type CSVReader struct {
	r      *csv.Reader
	closer io.Closer
	header []string
}

// NewCSVReader wraps rc, reading and consuming its header row
// immediately so construction fails fast on an empty or malformed
// file (kind 1, §7).
func NewCSVReader(rc io.ReadCloser) (*CSVReader, error) {
	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("rowfile: reading header: %w", err)
	}
	return &CSVReader{r: r, closer: rc, header: header}, nil
}

// Read returns the next row, keyed by the header this reader was
// constructed with. Returns io.EOF once exhausted.
func (c *CSVReader) Read() (transport.Row, error) {
	record, err := c.r.Read()
	if err != nil {
		return nil, err
	}
	row := make(transport.Row, len(c.header))
	for i, column := range c.header {
		if i < len(record) {
			row[column] = record[i]
		}
	}
	return row, nil
}

func (c *CSVReader) Close() error {
	return c.closer.Close()
}

var _ Reader = (*CSVReader)(nil)

// CSVWriter is the default Writer, backed by encoding/csv. columns
// fixes the header and the per-row column order, matching a step's
// configured field list (§6) regardless of a row map's iteration
// order.
type CSVWriter struct {
	w           *csv.Writer
	closer      io.Closer
	columns     []string
	wroteHeader bool
}

// NewCSVWriter wraps wc, writing rows under columns in that fixed
// order. The header is written lazily on the first Write call so that
// a step producing zero rows still leaves a well-formed (empty) file
// only if at least one Write or an explicit WriteHeader call happens;
// callers that must guarantee a header even for zero rows should call
// WriteHeader directly.
func NewCSVWriter(wc io.WriteCloser, columns []string) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(wc), closer: wc, columns: columns}
}

// WriteHeader writes the column header immediately. Write calls
// WriteHeader on first use if it hasn't already run.
func (c *CSVWriter) WriteHeader() error {
	if c.wroteHeader {
		return nil
	}
	c.wroteHeader = true
	return c.w.Write(c.columns)
}

func (c *CSVWriter) Write(row transport.Row) error {
	if err := c.WriteHeader(); err != nil {
		return err
	}
	record := make([]string, len(c.columns))
	for i, column := range c.columns {
		record[i] = row[column]
	}
	if err := c.w.Write(record); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.closer.Close()
		return err
	}
	return c.closer.Close()
}

var _ Writer = (*CSVWriter)(nil)
