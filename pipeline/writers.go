package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-pets/models"
	"github.com/aluiziolira/go-scrape-pets/storage"
)

var csvHeader = []string{
	"name", "type", "breed", "age", "description", "gender", "size",
	"vaccinated", "urgent", "sterilized", "kidFriendly", "mainImagePath", "imagePaths",
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
		return nil, &storage.PersistenceError{Op: "create csv file", Path: filename, Err: err}
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
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

// Write appends pets to the CSV output.
func (cw *CSVWriter) Write(pets []*models.Pet) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, pet := range pets {
		breed := ""
		if pet.Breed != nil {
			breed = *pet.Breed
		}
		record := []string{
			pet.Name,
			string(pet.Type),
			breed,
			strconv.Itoa(pet.Age),
			pet.Description,
			string(pet.Gender),
			string(pet.Size),
			strconv.FormatBool(pet.Vaccinated),
			strconv.FormatBool(pet.Urgent),
			strconv.FormatBool(pet.Sterilized),
			strconv.FormatBool(pet.KidFriendly),
			pet.MainImagePath,
			strings.Join(pet.ImagePaths, ";"),
		}
		if err := cw.writer.Write(record); err != nil {
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

// Validate ensures the file holds at least the header row.
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

// JSONWriter writes the record sequence as one JSON array. Each Write
// atomically replaces the file, so it never holds a partial document and an
// earlier file stays intact until the first Write.
type JSONWriter struct {
	path string
	mu   sync.Mutex
}

// NewJSONWriter initialises the JSON writer and creates its directory.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return &JSONWriter{path: filename}, nil
}

// Write replaces the file with pets encoded as an indented JSON array.
func (jw *JSONWriter) Write(pets []*models.Pet) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if pets == nil {
		pets = []*models.Pet{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(pets); err != nil {
		return fmt.Errorf("encode json records: %w", err)
	}
	return storage.WriteFileAtomic(jw.path, buf.Bytes())
}

// Close is a no-op; every Write leaves a complete file behind.
func (jw *JSONWriter) Close() error {
	return nil
}

// Validate ensures the JSON file holds a well-formed array.
func (jw *JSONWriter) Validate() error {
	data, err := os.ReadFile(jw.path)
	if err != nil {
		return fmt.Errorf("read json file: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("json file is empty")
	}
	var pets []json.RawMessage
	if err := json.Unmarshal(data, &pets); err != nil {
		return fmt.Errorf("json file is not an array: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &storage.PersistenceError{Op: "create directory", Path: dir, Err: err}
	}
	return nil
}
