package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fyrsmithlabs/hazina/internal/docmeta"
)

// defaultMaxRuns caps the manifest's run history.
const defaultMaxRuns = 50

// RunSummary is the structured result of one ingestion run. Batch
// operations report partial failure through the counters instead of
// erroring.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	Input      int `json:"input"`
	Parsed     int `json:"parsed"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
	Chunks     int `json:"chunks"`
	Indexed    int `json:"indexed"`

	DurationSeconds float64 `json:"duration_seconds"`
}

// manifestFile is the on-disk JSON layout.
type manifestFile struct {
	Documents []docmeta.DocumentMeta `json:"documents"`
	Runs      []RunSummary           `json:"runs"`
}

// Manifest is the durable record of processed documents and past runs.
// Document ids are unique: reprocessing a document updates its entry in
// place. Run history is append-only up to the cap, oldest evicted.
type Manifest struct {
	path    string
	maxRuns int

	documents []docmeta.DocumentMeta
	byID      map[string]int
	runs      []RunSummary
}

// LoadManifest reads the manifest at path, returning an empty manifest if
// none exists yet.
func LoadManifest(path string, maxRuns int) (*Manifest, error) {
	if maxRuns <= 0 {
		maxRuns = defaultMaxRuns
	}
	m := &Manifest{path: path, maxRuns: maxRuns, byID: make(map[string]int)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var file manifestFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	m.documents = file.Documents
	m.runs = file.Runs
	for i, d := range m.documents {
		m.byID[d.DocID] = i
	}
	return m, nil
}

// Upsert records a processed document, replacing any entry with the same id.
func (m *Manifest) Upsert(meta docmeta.DocumentMeta) {
	if i, ok := m.byID[meta.DocID]; ok {
		m.documents[i] = meta
		return
	}
	m.byID[meta.DocID] = len(m.documents)
	m.documents = append(m.documents, meta)
}

// Document returns the recorded metadata for a document id.
func (m *Manifest) Document(docID string) (docmeta.DocumentMeta, bool) {
	if i, ok := m.byID[docID]; ok {
		return m.documents[i], true
	}
	return docmeta.DocumentMeta{}, false
}

// DocumentCount returns the number of recorded documents.
func (m *Manifest) DocumentCount() int { return len(m.documents) }

// Documents returns the recorded documents in insertion order.
func (m *Manifest) Documents() []docmeta.DocumentMeta {
	return append([]docmeta.DocumentMeta(nil), m.documents...)
}

// Sources returns the distinct source ids across recorded documents, sorted.
func (m *Manifest) Sources() []string {
	seen := make(map[string]struct{})
	for _, d := range m.documents {
		seen[d.SourceID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// AppendRun records a run summary, evicting the oldest beyond the cap.
func (m *Manifest) AppendRun(run RunSummary) {
	m.runs = append(m.runs, run)
	if len(m.runs) > m.maxRuns {
		m.runs = m.runs[len(m.runs)-m.maxRuns:]
	}
}

// LastRun returns the most recent run summary.
func (m *Manifest) LastRun() (RunSummary, bool) {
	if len(m.runs) == 0 {
		return RunSummary{}, false
	}
	return m.runs[len(m.runs)-1], true
}

// Runs returns the retained run history, oldest first.
func (m *Manifest) Runs() []RunSummary {
	return append([]RunSummary(nil), m.runs...)
}

// Save writes the manifest atomically.
func (m *Manifest) Save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("creating manifest dir: %w", err)
	}
	data, err := json.MarshalIndent(manifestFile{Documents: m.documents, Runs: m.runs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing manifest: %w", err)
	}
	return nil
}
