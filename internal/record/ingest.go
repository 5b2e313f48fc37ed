package record

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/araddon/dateparse"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed raw_record.schema.json
var rawRecordSchemaJSON string

// Ingestion drop reasons, preserved for the caller's logging.
var (
	ErrSchema           = errors.New("record does not match ingest schema")
	ErrMissingTitle     = errors.New("record has no title")
	ErrMissingScrapedAt = errors.New("record has no scraped_at")
	ErrBadScrapedAt     = errors.New("record scraped_at is not a timestamp")
	ErrMissingSource    = errors.New("record has no source")
)

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

type rawRecord struct {
	Title     string  `json:"title"`
	Summary   *string `json:"summary"`
	URL       *string `json:"url"`
	Source    string  `json:"source"`
	Published *string `json:"published"`
	ScrapedAt string  `json:"scraped_at"`
}

// FromRaw validates one raw scraper payload and builds a Record from it.
// A failed record is rejected whole, never repaired; the returned error
// names the drop reason.
func FromRaw(payload json.RawMessage) (*Record, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode record JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load ingest schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize record JSON: %w", err)
	}
	var raw rawRecord
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	if strings.TrimSpace(raw.Title) == "" {
		return nil, ErrMissingTitle
	}
	if strings.TrimSpace(raw.Source) == "" {
		return nil, ErrMissingSource
	}
	if strings.TrimSpace(raw.ScrapedAt) == "" {
		return nil, ErrMissingScrapedAt
	}
	scrapedAt, err := dateparse.ParseAny(strings.TrimSpace(raw.ScrapedAt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadScrapedAt, err)
	}

	rec := &Record{
		Title:     raw.Title,
		Source:    strings.ToLower(strings.TrimSpace(raw.Source)),
		ScrapedAt: scrapedAt,
	}
	if raw.Summary != nil {
		rec.Summary = *raw.Summary
	}
	if raw.URL != nil {
		rec.URL = strings.TrimSpace(*raw.URL)
	}
	if raw.Published != nil {
		rec.PublishedLabel = strings.TrimSpace(*raw.Published)
	}
	return rec, nil
}

// DropReason maps an ingestion error to a short tag for structured logs.
func DropReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingTitle):
		return "missing_title"
	case errors.Is(err, ErrMissingSource):
		return "missing_source"
	case errors.Is(err, ErrMissingScrapedAt), errors.Is(err, ErrBadScrapedAt):
		return "bad_scraped_at"
	case errors.Is(err, ErrSchema):
		return "schema"
	default:
		return "invalid"
	}
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("raw_record.schema.json", strings.NewReader(rawRecordSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("raw_record.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}
	return value, nil
}
