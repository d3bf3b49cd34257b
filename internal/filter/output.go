package filter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const (
	recordsFile   = "records.jsonl"
	decisionsFile = "decisions.jsonl"
)

// WriteOutputs writes the curated records and the decision log under dir,
// one JSON object per line. Files are written to a temporary name and
// renamed so a crashed run never leaves a truncated output behind.
func WriteOutputs(dir string, result Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating curated directory: %w", err)
	}
	if err := writeJSONL(filepath.Join(dir, recordsFile), func(enc *json.Encoder) error {
		for _, rec := range result.Records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("writing curated records: %w", err)
	}
	if err := writeJSONL(filepath.Join(dir, decisionsFile), func(enc *json.Encoder) error {
		for _, d := range result.Decisions {
			if err := enc.Encode(d); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("writing decisions: %w", err)
	}
	return nil
}

func writeJSONL(path string, write func(*json.Encoder) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".filter-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	writeErr := write(json.NewEncoder(bw))
	if writeErr == nil {
		writeErr = bw.Flush()
	}
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return writeErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}

// LoadRecords reads the curated records back from dir for the publish
// stage.
func LoadRecords(dir string) ([]types.CuratedRecord, error) {
	path := filepath.Join(dir, recordsFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening curated records: %w", err)
	}
	defer f.Close()

	var records []types.CuratedRecord
	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var rec types.CuratedRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadDecisions reads the decision log back from dir.
func LoadDecisions(dir string) ([]types.FilterDecision, error) {
	path := filepath.Join(dir, decisionsFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening decisions: %w", err)
	}
	defer f.Close()

	var decisions []types.FilterDecision
	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var d types.FilterDecision
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}
