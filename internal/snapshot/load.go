// Package snapshot owns the flat-file surface around the core: loading
// raw scraper dumps and writing the clustered outputs of a run.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LoadRaw reads every *.json (array of records) and *.jsonl (one record
// per line) file under dir and returns the raw payloads in path order.
func LoadRaw(dir string) ([]json.RawMessage, error) {
	jsonFiles, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob raw files: %w", err)
	}
	jsonlFiles, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("glob raw jsonl files: %w", err)
	}

	files := append(jsonFiles, jsonlFiles...)
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no raw record files in %s", dir)
	}

	var payloads []json.RawMessage
	for _, file := range files {
		loaded, err := loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		payloads = append(payloads, loaded...)
	}
	return payloads, nil
}

func loadFile(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if filepath.Ext(path) == ".jsonl" {
		var payloads []json.RawMessage
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			payloads = append(payloads, json.RawMessage(append([]byte(nil), line...)))
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan lines: %w", err)
		}
		return payloads, nil
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("expected a JSON array of records: %w", err)
	}
	return payloads, nil
}
