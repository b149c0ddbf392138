package rowfile

import "io"

// Fixed result-file column names (§6).
const (
	ColumnOriginalID = "Original Id"
	ColumnNewID      = "New Id"
	ColumnError      = "Error"
)

// ResultColumns is the standard three-column header for a load step's
// result file.
var ResultColumns = []string{ColumnOriginalID, ColumnNewID, ColumnError}

// ResultWriter writes a load step's per-record outcome: one row per
// input record, either a successful remap or an error message.
type ResultWriter struct {
	w *CSVWriter
}

// NewResultWriter wraps wc as a result file writer with the fixed
// Original Id / New Id / Error header.
func NewResultWriter(wc io.WriteCloser) *ResultWriter {
	return &ResultWriter{w: NewCSVWriter(wc, ResultColumns)}
}

// WriteSuccess records that oldID was loaded as newID.
func (r *ResultWriter) WriteSuccess(oldID, newID string) error {
	return r.w.Write(map[string]string{ColumnOriginalID: oldID, ColumnNewID: newID})
}

// WriteError records that oldID failed to load with message.
func (r *ResultWriter) WriteError(oldID, message string) error {
	return r.w.Write(map[string]string{ColumnOriginalID: oldID, ColumnError: message})
}

func (r *ResultWriter) Close() error {
	return r.w.Close()
}
