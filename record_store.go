package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const recordsFileName = "study_records.json"

// recordStore persists the full StudyRecords structure as one JSON file.
// Every save rewrites the whole file through a temp file + rename so a
// crash mid-write never corrupts existing records.
type recordStore struct {
	path string
}

func newRecordStore(dataDir string) (*recordStore, error) {
	if dataDir == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &recordStore{path: filepath.Join(dataDir, recordsFileName)}, nil
}

// load returns the persisted records, or an empty mapping when no file
// exists yet.
func (s *recordStore) load() (StudyRecords, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(StudyRecords), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	records := make(StudyRecords)
	if err := fastJSONUnmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return records, nil
}

func (s *recordStore) save(records StudyRecords) error {
	data, err := fastJSONMarshalIndent(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := atomicWriteFile(s.path, data); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
