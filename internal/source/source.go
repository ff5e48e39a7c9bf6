// Package source streams URL records from the upstream store in bounded
// batches. Line-delimited JSON is preferred; a tabular CSV export is the
// fallback. Malformed rows are skipped with a warning, never fatal.
package source

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

const maxLineBytes = 1 << 20

// Filter pre-screens records before they enter a batch.
type Filter func(pipeline.UrlRecord) bool

// Reader streams batches of validated UrlRecords.
type Reader struct {
	jsonlPath string
	csvPath   string
	batchSize int
	filter    Filter
	logger    *zap.Logger
}

// New builds a Reader. filter may be nil.
func New(jsonlPath, csvPath string, batchSize int, filter Filter, logger *zap.Logger) *Reader {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		jsonlPath: jsonlPath,
		csvPath:   csvPath,
		batchSize: batchSize,
		filter:    filter,
		logger:    logger,
	}
}

// StreamBatches invokes fn for every batch of at most batchSize records.
// Returning an error from fn stops the stream.
func (r *Reader) StreamBatches(fn func(batch []pipeline.UrlRecord) error) error {
	if fileExists(r.jsonlPath) {
		r.logger.Info("streaming jsonl input", zap.String("path", r.jsonlPath), zap.Int("batch_size", r.batchSize))
		return r.streamJSONL(fn)
	}
	r.logger.Info("streaming csv input", zap.String("path", r.csvPath), zap.Int("batch_size", r.batchSize))
	return r.streamCSV(fn)
}

func (r *Reader) streamJSONL(fn func([]pipeline.UrlRecord) error) error {
	f, err := os.Open(r.jsonlPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	batch := make([]pipeline.UrlRecord, 0, r.batchSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec pipeline.UrlRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			r.logger.Warn("skipping invalid line", zap.Int("line", lineNum), zap.Error(err))
			continue
		}
		if !r.admit(&rec) {
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= r.batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]pipeline.UrlRecord, 0, r.batchSize)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return flush(batch, fn)
}

func (r *Reader) streamCSV(fn func([]pipeline.UrlRecord) error) error {
	f, err := os.Open(r.csvPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	columns := columnIndex(header)

	batch := make([]pipeline.UrlRecord, 0, r.batchSize)
	rowNum := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			r.logger.Warn("skipping invalid row", zap.Int("row", rowNum), zap.Error(err))
			continue
		}
		rec := pipeline.UrlRecord{
			ProductID:        field(row, columns, "product_id"),
			URL:              field(row, columns, "url"),
			SourceCollection: field(row, columns, "source_collection"),
		}
		if !r.admit(&rec) {
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= r.batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]pipeline.UrlRecord, 0, r.batchSize)
		}
	}
	return flush(batch, fn)
}

// admit validates a record at the input boundary and applies the filter.
func (r *Reader) admit(rec *pipeline.UrlRecord) bool {
	rec.ProductID = strings.TrimSpace(rec.ProductID)
	rec.URL = strings.TrimSpace(rec.URL)
	rec.SourceCollection = strings.TrimSpace(rec.SourceCollection)
	if rec.SourceCollection == "" {
		rec.SourceCollection = "unknown"
	}
	if rec.ProductID == "" || rec.URL == "" {
		return false
	}
	if r.filter != nil && !r.filter(*rec) {
		return false
	}
	return true
}

// CountDistinctProducts streams the input once to count distinct product ids,
// used only for progress reporting.
func (r *Reader) CountDistinctProducts() (int, error) {
	ids := make(map[string]struct{})
	err := r.StreamBatches(func(batch []pipeline.UrlRecord) error {
		for _, rec := range batch {
			ids[rec.ProductID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func flush(batch []pipeline.UrlRecord, fn func([]pipeline.UrlRecord) error) error {
	if len(batch) == 0 {
		return nil
	}
	return fn(batch)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}
	return idx
}

func field(row []string, columns map[string]int, name string) string {
	i, found := columns[name]
	if !found || i >= len(row) {
		return ""
	}
	return row[i]
}
