// Package report writes the outcome of a feature selection run as a text
// summary, a ranking CSV and a JSON document.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"featsel/internal/selection"
	"featsel/internal/storage"

	"github.com/rs/zerolog/log"
)

// Report file names inside the output directory.
const (
	SummaryFile = "selection_summary.txt"
	RankingFile = "ranking.csv"
	JSONFile    = "selection.json"
)

// Reporter generates selection reports
type Reporter struct {
	run        storage.RunRecord
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(run storage.RunRecord, outputPath string) *Reporter {
	return &Reporter{
		run:        run,
		outputPath: outputPath,
	}
}

// GenerateReport generates all report formats
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}

	if err := r.generateRanking(); err != nil {
		return err
	}

	return r.generateJSONReport()
}

// generateSummary generates a human-readable summary
func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.writeSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) writeSummary(w io.Writer) {
	run := r.run

	fmt.Fprintf(w, "FEATURE SELECTION SUMMARY\n")
	fmt.Fprintf(w, "=========================\n\n")

	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "Dataset: %s (%d rows, %d features)\n", run.Dataset, run.Rows, run.Features)
	fmt.Fprintf(w, "Time: %s\n\n", run.Timestamp.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "CONFIGURATION\n")
	fmt.Fprintf(w, "-------------\n")
	fmt.Fprintf(w, "Polynomial Degree: %d\n", run.Config.Degree)
	fmt.Fprintf(w, "Scaling: %s\n", run.Config.Scale)
	fmt.Fprintf(w, "Variance Threshold: %s\n", optFloat(run.Config.Selection.VarianceThreshold))
	fmt.Fprintf(w, "Correlation Threshold: %s\n", optFloat(run.Config.Selection.CorrelationThreshold))
	if k := run.Config.Selection.WrapperK; k != nil {
		fmt.Fprintf(w, "Wrapper: %s, k=%d, step=%d\n", run.Config.Model, *k, max(run.Config.Selection.WrapperStep, 1))
	} else {
		fmt.Fprintf(w, "Wrapper: off\n")
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "RESULT\n")
	fmt.Fprintf(w, "------\n")
	fmt.Fprintf(w, "Stages Run: %v\n", run.Stages)
	fmt.Fprintf(w, "Retained Features: %d\n", len(run.Retained))
	for _, name := range run.Retained {
		fmt.Fprintf(w, "  %s\n", name)
	}
	if r.wrapperRan() {
		fmt.Fprintf(w, "Model R²: %.4f\n", run.ModelScore)
	}

	stats := r.calculateStageStats()
	if len(stats) > 0 {
		fmt.Fprintf(w, "\nDROPPED BY STAGE\n")
		fmt.Fprintf(w, "----------------\n")
		for _, s := range stats {
			fmt.Fprintf(w, "%s: %d\n", s.Stage, s.Count)
		}
	}

	if len(run.Dropped) > 0 {
		fmt.Fprintf(w, "\nFILTERED FEATURES\n")
		fmt.Fprintf(w, "-----------------\n")
		for _, d := range run.Dropped {
			if d.Partner != "" {
				fmt.Fprintf(w, "%s (%s, r=%.4f with %s)\n", d.Name, d.Stage, d.Value, d.Partner)
			} else {
				fmt.Fprintf(w, "%s (%s, %.6g)\n", d.Name, d.Stage, d.Value)
			}
		}
	}

	if len(run.Elimination) > 0 {
		fmt.Fprintf(w, "\nELIMINATION ORDER\n")
		fmt.Fprintf(w, "-----------------\n")
		for i, s := range run.Elimination {
			fmt.Fprintf(w, "%d. %s (|coef|=%.6g)\n", i+1, s.Name, s.Value)
		}
	}
}

// generateRanking generates a CSV of the full ranking
func (r *Reporter) generateRanking() error {
	csvPath := filepath.Join(r.outputPath, RankingFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create ranking file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"Rank", "Feature", "Score", "Retained", "Eliminated Order"}
	if err := writer.Write(header); err != nil {
		return err
	}

	retained := make(map[string]bool, len(r.run.Retained))
	for _, name := range r.run.Retained {
		retained[name] = true
	}
	eliminated := make(map[string]int, len(r.run.Elimination))
	for i, s := range r.run.Elimination {
		eliminated[s.Name] = i + 1
	}

	for i, s := range r.run.Ranking {
		order := ""
		if n, ok := eliminated[s.Name]; ok {
			order = strconv.Itoa(n)
		}
		record := []string{
			strconv.Itoa(i + 1),
			s.Name,
			strconv.FormatFloat(s.Value, 'g', 8, 64),
			strconv.FormatBool(retained[s.Name]),
			order,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write ranking: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Ranking report generated")
	return nil
}

// generateJSONReport generates a JSON report with all data
func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, JSONFile)

	report := map[string]interface{}{
		"run":          r.run,
		"stage_stats":  r.calculateStageStats(),
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// StageStats holds how many features one stage removed
type StageStats struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// calculateStageStats counts removals per stage in pipeline order
func (r *Reporter) calculateStageStats() []StageStats {
	counts := make(map[string]int)
	for _, d := range r.run.Dropped {
		counts[d.Stage]++
	}
	if n := len(r.run.Elimination); n > 0 {
		counts[selection.StageWrapper] += n
	}

	order := make(map[string]int, len(r.run.Stages))
	for i, s := range r.run.Stages {
		order[s] = i
	}

	stats := make([]StageStats, 0, len(counts))
	for stage, n := range counts {
		stats = append(stats, StageStats{Stage: stage, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool { return order[stats[i].Stage] < order[stats[j].Stage] })
	return stats
}

// PrintSummary writes a short summary to w
func (r *Reporter) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n=== FEATURE SELECTION ===")
	fmt.Fprintf(w, "Dataset: %s\n", r.run.Dataset)
	fmt.Fprintf(w, "Features: %d -> %d\n", r.run.Features, len(r.run.Retained))
	fmt.Fprintf(w, "Stages: %v\n", r.run.Stages)
	fmt.Fprintf(w, "Retained: %v\n", r.run.Retained)
	if len(r.run.Ranking) > 0 {
		top := r.run.Ranking[0]
		fmt.Fprintf(w, "Top Feature: %s (%.4f)\n", top.Name, top.Value)
	}
	if r.wrapperRan() {
		fmt.Fprintf(w, "Model R²: %.4f\n", r.run.ModelScore)
	}
	fmt.Fprintln(w, "=========================")
}

func (r *Reporter) wrapperRan() bool {
	for _, s := range r.run.Stages {
		if s == selection.StageWrapper {
			return true
		}
	}
	return false
}

func optFloat(v *float64) string {
	if v == nil {
		return "off"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
