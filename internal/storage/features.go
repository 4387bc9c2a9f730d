package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"featsel/internal/selection"

	"go.etcd.io/bbolt"
)

const featuresBucket = "features"

// FeatureRecord is the outcome of one feature in one run.
type FeatureRecord struct {
	Dataset   string    `json:"dataset"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Feature   string    `json:"feature"`
	Rank      int       `json:"rank"` // 1-based position in the run's ranking, 0 if unranked
	Score     float64   `json:"score"`
	Retained  bool      `json:"retained"`
	DroppedBy string    `json:"dropped_by,omitempty"`
}

func putFeatureRecords(tx *bbolt.Tx, rec RunRecord) error {
	b := tx.Bucket([]byte(featuresBucket))

	retained := make(map[string]bool, len(rec.Retained))
	for _, name := range rec.Retained {
		retained[name] = true
	}

	put := func(fr FeatureRecord, seq int) error {
		data, err := json.Marshal(fr)
		if err != nil {
			return fmt.Errorf("marshal feature record: %w", err)
		}
		key := fmt.Sprintf("%s_%04d", runKey(rec.Dataset, rec.Timestamp), seq)
		return b.Put([]byte(key), data)
	}

	base := FeatureRecord{Dataset: rec.Dataset, RunID: rec.ID, Timestamp: rec.Timestamp}
	seq := 0
	for i, s := range rec.Ranking {
		fr := base
		fr.Feature, fr.Rank, fr.Score, fr.Retained = s.Name, i+1, s.Value, retained[s.Name]
		if !fr.Retained {
			fr.DroppedBy = selection.StageWrapper
		}
		if err := put(fr, seq); err != nil {
			return err
		}
		seq++
	}
	for _, d := range rec.Dropped {
		fr := base
		fr.Feature, fr.Score, fr.DroppedBy = d.Name, d.Value, d.Stage
		if err := put(fr, seq); err != nil {
			return err
		}
		seq++
	}
	return nil
}

// GetFeatureRecords returns the per-feature outcomes of dataset's runs within
// [start, end].
func (s *Store) GetFeatureRecords(dataset string, start, end time.Time) ([]FeatureRecord, error) {
	var features []FeatureRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(featuresBucket))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		prefix := []byte(dataset + "_")

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if !ownsKey(k, dataset) {
				continue
			}

			var feature FeatureRecord
			if err := json.Unmarshal(v, &feature); err != nil {
				continue
			}

			if !feature.Timestamp.Before(start) && !feature.Timestamp.After(end) {
				features = append(features, feature)
			}
		}
		return nil
	})

	return features, err
}

// RetentionRates returns, per feature, the fraction of runs in records that
// retained it.
func RetentionRates(records []FeatureRecord) map[string]float64 {
	runs := map[string]struct{}{}
	kept := map[string]int{}
	for _, r := range records {
		runs[r.RunID] = struct{}{}
		if _, ok := kept[r.Feature]; !ok {
			kept[r.Feature] = 0
		}
		if r.Retained {
			kept[r.Feature]++
		}
	}
	rates := make(map[string]float64, len(kept))
	if len(runs) == 0 {
		return rates
	}
	for name, n := range kept {
		rates[name] = float64(n) / float64(len(runs))
	}
	return rates
}
