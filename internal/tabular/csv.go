package tabular

import (
	"encoding/csv"
	"errors"
	"io"

	"harvest/internal/services"
	"harvest/internal/textutil"
)

// NormalizeHeader maps every column name to canonical lowercase
// underscore form.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		out[i] = textutil.NormalizeColumn(name)
	}
	return out
}

// Rewrite streams a CSV document from r to w, renaming the header row
// to canonical form and copying data rows verbatim. It returns the
// number of data rows written. A missing header or any malformed record
// is an ErrParse.
func Rewrite(r io.Reader, w io.Writer) (int, error) {
	reader := csv.NewReader(r)
	writer := csv.NewWriter(w)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, services.Wrap(services.ErrParse, "tabular", "rewrite", "document has no header row", nil)
		}
		return 0, services.Wrap(services.ErrParse, "tabular", "rewrite", "read header", err)
	}
	if err := writer.Write(NormalizeHeader(header)); err != nil {
		return 0, err
	}

	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, services.Wrap(services.ErrParse, "tabular", "rewrite", "read record", err)
		}
		if err := writer.Write(record); err != nil {
			return rows, err
		}
		rows++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return rows, err
	}
	return rows, nil
}
