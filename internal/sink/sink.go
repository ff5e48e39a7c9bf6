// Package sink appends outcome records to the two output artifacts: a JSONL
// log of every outcome and a tabular file of named outcomes only.
package sink

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

// Column order of the final tabular artifact. The header row is written
// exactly once per file.
var csvColumns = []string{"product_id", "product_name", "url", "source_collection", "status", "fetched_at"}

// JSONLWriter appends every outcome record as one JSON line.
type JSONLWriter struct {
	path string
}

// NewJSONLWriter builds a writer appending to path.
func NewJSONLWriter(path string) *JSONLWriter {
	return &JSONLWriter{path: path}
}

// Append writes one line per outcome.
func (w *JSONLWriter) Append(outcomes []pipeline.OutcomeRecord) error {
	if len(outcomes) == 0 {
		return nil
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open jsonl sink: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, out := range outcomes {
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("append jsonl record: %w", err)
		}
	}
	return nil
}

// CSVWriter appends named outcomes to the tabular artifact.
type CSVWriter struct {
	path string
}

// NewCSVWriter builds a writer appending to path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Append writes the outcomes that carry a product name. The header is emitted
// only when the file does not already exist.
func (w *CSVWriter) Append(outcomes []pipeline.OutcomeRecord) error {
	named := make([]pipeline.OutcomeRecord, 0, len(outcomes))
	for _, out := range outcomes {
		if out.HasName() {
			named = append(named, out)
		}
	}
	if len(named) == 0 {
		return nil
	}

	writeHeader := !fileExists(w.path)
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv sink: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write(csvColumns); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	for _, out := range named {
		row := []string{
			out.ProductID,
			out.ProductName,
			out.URL,
			out.SourceCollection,
			string(out.Status),
			strconv.FormatInt(out.FetchedAt, 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv sink: %w", err)
	}
	return nil
}

// ExistingProductIDs reads product ids already present in the tabular
// artifact, used to resume an interrupted run.
func ExistingProductIDs(path string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ids, nil
		}
		return nil, fmt.Errorf("open final csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		return nil, fmt.Errorf("read final csv header: %w", err)
	}
	idCol := 0
	for i, name := range header {
		if strings.TrimSpace(strings.ToLower(name)) == "product_id" {
			idCol = i
			break
		}
	}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		if err != nil {
			continue
		}
		if idCol < len(row) && row[idCol] != "" {
			ids[row[idCol]] = struct{}{}
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
