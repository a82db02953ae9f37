package telemetry

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/skyward-labs/flightloop/internal/axis"
)

// Store persists flight runs under a base directory, one directory
// per run holding metadata.json and cycles.csv.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	PeriodMS  int                `json:"period_ms"`
	Cycles    int                `json:"cycles"`
	Targets   map[string]float64 `json:"targets"`
	Counters  map[string]uint64  `json:"counters"`
}

// cycleHeader matches the column layout written by Save. Health is
// stored as its enum ordinal so every column stays numeric.
var cycleHeader = []string{
	"cycle",
	"alt_target", "alt_meas", "alt_out", "alt_health",
	"hdg_target", "hdg_meas", "hdg_out", "hdg_health",
	"spd_target", "spd_meas", "spd_out", "spd_health",
	"throttle", "rudder",
}

func (s *Store) Save(periodMS int, targets map[string]float64, counters *Counters, records []Record) (string, error) {
	runID := fmt.Sprintf("flight_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Timestamp: time.Now(),
		PeriodMS:  periodMS,
		Cycles:    len(records),
		Targets:   targets,
		Counters:  counters.Snapshot(),
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "cycles.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(cycleHeader); err != nil {
		return "", err
	}

	for _, rec := range records {
		row := []string{strconv.FormatUint(rec.Cycle, 10)}
		for ax := 0; ax < axis.NumAxes; ax++ {
			a := rec.Axes[ax]
			row = append(row,
				strconv.FormatFloat(a.Target, 'f', 6, 64),
				strconv.FormatFloat(a.Measurement, 'f', 6, 64),
				strconv.FormatFloat(a.Output, 'f', 6, 64),
				strconv.Itoa(int(a.Health)),
			)
		}
		row = append(row,
			strconv.FormatFloat(rec.Throttle, 'f', 6, 64),
			strconv.FormatFloat(rec.Rudder, 'f', 6, 64),
		)
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries returns one named column of a run's cycle data.
func (s *Store) LoadSeries(runID, column string) ([]float64, error) {
	header, rows, err := s.LoadCycles(runID)
	if err != nil {
		return nil, err
	}

	col := -1
	for i, name := range header {
		if name == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("unknown column %q (have %v)", column, header)
	}

	series := make([]float64, 0, len(rows))
	for _, row := range rows {
		if col < len(row) {
			series = append(series, row[col])
		}
	}
	return series, nil
}

// LoadCycles reads a run's cycle table as numeric rows.
func (s *Store) LoadCycles(runID string) ([]string, [][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "cycles.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty cycle table for run %s", runID)
	}

	header := records[0]
	rows := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]float64, 0, len(record))
		for _, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
