package datastore

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"rail-defect-map/pkg/dataset"
)

// loadCSV reads a headered CSV file into a dataset. The schema is whatever
// the header row says — we never assume a fixed column set, only that a
// header exists. Ragged rows are kept and padded on access rather than
// rejected; presence-of-column checks happen downstream.
func loadCSV(src Source) (dataset.Dataset, error) {
	file, err := os.Open(src.Path)
	if err != nil {
		return dataset.Dataset{}, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1 // feeds occasionally ship short rows

	header, err := r.Read()
	if err == io.EOF {
		return dataset.Dataset{}, fmt.Errorf("%s: empty file, no header row", src.Path)
	}
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("%s: header: %w", src.Path, err)
	}

	columns := append([]string(nil), header...)
	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return dataset.Dataset{}, fmt.Errorf("%s: row %d: %w", src.Path, len(rows)+2, err)
		}
		rows = append(rows, record)
	}

	return dataset.Dataset{Columns: columns, Rows: rows}, nil
}
