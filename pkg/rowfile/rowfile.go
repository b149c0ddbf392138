// Package rowfile implements the row-oriented file reader/writer the
// engine treats as an external collaborator (spec §6): a stream of
// column→string mappings in, the same shape out, with output field
// order pinned to a step's configured field list. Constructing an
// actual implementation is in scope only to the extent of a default,
// CSV-backed one; anything reading from or writing to another format
// (JSON lines, Parquet, a database cursor) need only satisfy Reader or
// Writer.
package rowfile

import (
	"io"

	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// Reader streams rows from an input file. Read returns io.EOF once
// exhausted, matching encoding/csv.Reader's convention.
type Reader interface {
	Read() (transport.Row, error)
	Close() error
}

// Writer streams rows to an output file, serializing columns in a
// fixed order decided at construction time regardless of each row's
// iteration order.
type Writer interface {
	Write(row transport.Row) error
	Close() error
}

// ReadAll drains r to a slice, a convenience for load steps that need
// the whole input file in memory to set aside dependent-lookup values
// before inserting (§4.E).
func ReadAll(r Reader) ([]transport.Row, error) {
	var out []transport.Row
	for {
		row, err := r.Read()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, row)
	}
}
