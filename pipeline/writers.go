package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/go-scrape-lists/config"
	"github.com/aluiziolira/go-scrape-lists/models"
)

// ArtifactPath returns the output file for a list, e.g. film_titles_top.json.
func ArtifactPath(dir, listName, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("film_titles_%s.%s", listName, ext))
}

// NewOutputWriter opens the writer for format in dir and returns it together
// with the files it produces.
func NewOutputWriter(format, dir, listName string) (OutputWriter, []string, error) {
	csvPath := ArtifactPath(dir, listName, "csv")
	jsonPath := ArtifactPath(dir, listName, "json")

	switch format {
	case config.FormatCSV:
		w, err := NewCSVWriter(csvPath)
		return w, []string{csvPath}, err
	case config.FormatJSON:
		w, err := NewJSONWriter(jsonPath)
		return w, []string{jsonPath}, err
	case config.FormatDual:
		w, err := NewDualWriter(csvPath, jsonPath)
		return w, []string{jsonPath, csvPath}, err
	default:
		return nil, nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"Title", "Year", "LetterboxdID"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends records to the CSV output.
func (cw *CSVWriter) Write(records []*models.Record) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, rec := range records {
		if err := cw.writer.Write([]string{rec.Title, rec.Year, rec.ID}); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content.
func (cw *CSVWriter) Validate() error {
	info, err := os.Stat(cw.file.Name())
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter writes records as one indented JSON array. Records are held in
// memory and encoded on Close.
type JSONWriter struct {
	file    *os.File
	records []*models.Record
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}
	return &JSONWriter{file: f}, nil
}

// Write buffers records for the final array.
func (jw *JSONWriter) Write(records []*models.Record) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.records = append(jw.records, records...)
	return nil
}

// Close encodes the buffered records and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	records := jw.records
	if records == nil {
		records = []*models.Record{}
	}

	buffer := bufio.NewWriter(jw.file)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		jw.file.Close()
		return fmt.Errorf("encode json records: %w", err)
	}
	if err := buffer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := os.Stat(jw.file.Name())
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
