// Package storage keeps a history of feature selection runs in BoltDB.
// Each run is stored as a JSON record keyed by dataset name and timestamp so
// the history of one dataset can be scanned by time range.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"featsel/internal/selection"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	// DBFile is the database file created inside the data directory.
	DBFile = "featsel-runs.db"

	runsBucket = "runs" // Bucket name for storing run records

	timestampDigits = 20 // width of the zero-padded UnixNano in keys
)

// ErrNotFound is returned when no run matches a lookup.
var ErrNotFound = errors.New("run not found")

// RunConfig is the configuration snapshot stored with a run.
type RunConfig struct {
	Selection selection.Config `json:"selection"`
	Model     string           `json:"model,omitempty"`
	Degree    int              `json:"degree"`
	Scale     string           `json:"scale"`
}

// RunRecord is one persisted pipeline run.
type RunRecord struct {
	ID          string            `json:"id"`
	Dataset     string            `json:"dataset"`
	Timestamp   time.Time         `json:"timestamp"`
	Rows        int               `json:"rows"`
	Features    int               `json:"features"`
	Config      RunConfig         `json:"config"`
	Stages      []string          `json:"stages"`
	Retained    []string          `json:"retained"`
	Ranking     []selection.Score `json:"ranking"`
	Elimination []selection.Score `json:"elimination,omitempty"`
	Dropped     []selection.Drop  `json:"dropped,omitempty"`
	ModelScore  float64           `json:"model_score,omitempty"`
}

// NewRunRecord builds a record for res with a fresh ID.
func NewRunRecord(dataset string, rows, features int, cfg RunConfig, res *selection.Result, ts time.Time) RunRecord {
	score := res.ModelScore
	if math.IsNaN(score) || math.IsInf(score, 0) {
		score = 0
	}
	return RunRecord{
		ID:          uuid.New().String(),
		Dataset:     dataset,
		Timestamp:   ts,
		Rows:        rows,
		Features:    features,
		Config:      cfg,
		Stages:      res.Stages,
		Retained:    res.Retained,
		Ranking:     res.Ranking,
		Elimination: res.Elimination,
		Dropped:     res.Dropped,
		ModelScore:  score,
	}
}

// Store provides persistent storage for run records using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New opens (or creates) the run database inside dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(featuresBucket)); err != nil {
			return fmt.Errorf("create features bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// SaveRun stores rec in the runs bucket together with one feature record
// per ranked feature. The run key has the form "dataset_unixnano".
func (s *Store) SaveRun(rec RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}

		if err := b.Put([]byte(runKey(rec.Dataset, rec.Timestamp)), data); err != nil {
			return err
		}
		return putFeatureRecords(tx, rec)
	})
}

// GetRuns retrieves the runs of dataset within [start, end], oldest first.
func (s *Store) GetRuns(dataset string, start, end time.Time) ([]RunRecord, error) {
	var runs []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()

		startKey := []byte(runKey(dataset, start))
		endKey := []byte(runKey(dataset, end))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !ownsKey(k, dataset) {
				continue
			}

			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			runs = append(runs, rec)
		}
		return nil
	})

	return runs, err
}

// GetRun finds a run by ID.
func (s *Store) GetRun(id string) (RunRecord, error) {
	var (
		found RunRecord
		ok    bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(_, v []byte) error {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			if rec.ID == id {
				found, ok = rec, true
			}
			return nil
		})
	})
	if err != nil {
		return RunRecord{}, err
	}
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}

// LatestRun returns the most recent run of dataset.
func (s *Store) LatestRun(dataset string) (RunRecord, error) {
	var (
		latest RunRecord
		ok     bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		prefix := []byte(dataset + "_")
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if !ownsKey(k, dataset) {
				continue
			}
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			latest, ok = rec, true
		}
		return nil
	})
	if err != nil {
		return RunRecord{}, err
	}
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: no runs for %s", ErrNotFound, dataset)
	}
	return latest, nil
}

// runKey zero-pads the timestamp so keys sort chronologically. Times before
// the Unix epoch map to 0.
func runKey(dataset string, ts time.Time) string {
	nanos := ts.UnixNano()
	if ts.Before(time.Unix(0, 0)) {
		nanos = 0
	}
	return fmt.Sprintf("%s_%020d", dataset, nanos)
}

// ownsKey reports whether k belongs to dataset: the "dataset_" prefix must be
// followed by exactly the 20 timestamp digits, then the end of the key or a
// "_" sequence suffix. Keys of a dataset named "dataset_2" fail the digit
// check.
func ownsKey(k []byte, dataset string) bool {
	n := len(dataset) + 1
	if len(k) < n+timestampDigits || !bytes.HasPrefix(k, []byte(dataset+"_")) {
		return false
	}
	for _, c := range k[n : n+timestampDigits] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(k) == n+timestampDigits || k[n+timestampDigits] == '_'
}
