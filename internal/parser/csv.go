package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docatom/internal/atom"
)

// csvBatchSize is the number of data rows grouped into one table atom.
const csvBatchSize = 20

// CSVParser handles CSV files. The first record is the header row; data rows
// are grouped into table atoms of csvBatchSize rows.
type CSVParser struct{ headerStructured }

func (p *CSVParser) Parse(r io.Reader, filename string) ([]atom.Atom, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	em := newEmitter(filename)
	if len(records) == 0 {
		return em.atoms, nil
	}

	sheet := baseName(filename)
	headers := cleanAll(records[0])
	dataRows := records[1:]

	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))
		rows := make([][]string, 0, end-i)
		for _, rec := range dataRows[i:end] {
			rows = append(rows, cleanAll(rec))
		}
		em.add(atom.TypeTable,
			atom.WithTable(&atom.Table{Columns: headers, Rows: rows}),
			atom.WithTitle(fmt.Sprintf("Rows %d-%d", i+2, end+1)), // 1-indexed, skip header
			atom.WithCounts(len(rows), len(headers)),
			atom.WithLocator(sheet, fmt.Sprintf("A%d", i+2)),
		)
	}
	if len(dataRows) == 0 {
		em.add(atom.TypeTable,
			atom.WithTable(&atom.Table{Columns: headers}),
			atom.WithCounts(0, len(headers)),
			atom.WithLocator(sheet, "A1"),
		)
	}

	return em.atoms, nil
}
