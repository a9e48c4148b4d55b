// Package filer defines the opaque downstream sink for recognized tag
// bursts (spec.md §6), mirroring the original find_tags project's
// DB_Filer.hpp batch/run/hit/param protocol signature-for-signature, plus a
// logging-only reference implementation. The real sink (a database, a
// message queue) is an external collaborator and out of scope here.
package filer

import (
	"fmt"

	"github.com/blang/semver/v4"

	"github.com/sensorgnome-org/tagdfa/logger"
	"github.com/sensorgnome-org/tagdfa/tag"
)

// BatchID and RunID identify an open batch / open run, as returned by
// HitFiler.BeginBatch and HitFiler.BeginRun respectively.
type BatchID int64
type RunID int64

// Hit is one recognized pulse-burst observation, carrying the fields the
// original add_hit signature took individually.
type Hit struct {
	Antenna    string
	Timestamp  float64
	Signal     float64
	SignalSD   float64
	Noise      float64
	FreqKHz    float64
	FreqSD     float64
	Slop       float64
	BurstSlop  float64
}

// HitFiler is the downstream sink a recognition loop (out of scope here)
// would drive: open a batch, open a run per recognized tag, stream hits,
// close the run, and eventually close the batch. Mirrors DB_Filer.hpp.
type HitFiler interface {
	BeginBatch(bootNum int) (BatchID, error)
	BeginRun(batch BatchID, motusTagID tag.ID) (RunID, error)
	AddHit(run RunID, hit Hit) error
	EndRun(run RunID, numHits int) error
	AddParam(batch BatchID, name string, value float64) error
	EndBatch(batch BatchID) error
}

// ReferenceFiler is a logging-only HitFiler: it keeps just enough state to
// validate the protocol's call sequence and to amortize its "flush" log
// line every BatchSize hits, the way DB_Filer.hpp's steps_per_tx amortizes
// its commits. No hits are persisted anywhere.
type ReferenceFiler struct {
	BatchSize  int
	Version    semver.Version

	nextBatch RunID
	nextRun   RunID
	openRuns  map[RunID]int
	openBatch map[BatchID]bool
}

// NewReferenceFiler builds a ReferenceFiler, validating progVersion as a
// semver string (DB_Filer.hpp's constructor takes a prog_version argument
// recorded as a batch parameter).
func NewReferenceFiler(batchSize int, progVersion string) (*ReferenceFiler, error) {
	v, err := semver.Parse(progVersion)
	if err != nil {
		return nil, fmt.Errorf("filer: invalid program version %q: %w", progVersion, err)
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &ReferenceFiler{
		BatchSize: batchSize,
		Version:   v,
		openRuns:  make(map[RunID]int),
		openBatch: make(map[BatchID]bool),
	}, nil
}

func (f *ReferenceFiler) BeginBatch(bootNum int) (BatchID, error) {
	f.nextBatch++
	id := BatchID(f.nextBatch)
	f.openBatch[id] = true
	logger.Logger().Info().Int64("batch", int64(id)).Int("bootNum", bootNum).Msg("filer: batch opened")
	return id, f.AddParam(id, "prog_version", 0)
}

// AddParam records a named numeric batch parameter. name == "prog_version"
// logs ReferenceFiler.Version instead of value, mirroring the constructor-
// supplied version string DB_Filer.hpp stamps onto every batch.
func (f *ReferenceFiler) AddParam(batch BatchID, name string, value float64) error {
	if !f.openBatch[batch] {
		return fmt.Errorf("filer: AddParam on unknown or closed batch %d", batch)
	}
	ev := logger.Logger().Info().Int64("batch", int64(batch)).Str("name", name)
	if name == "prog_version" {
		ev = ev.Str("value", f.Version.String())
	} else {
		ev = ev.Float64("value", value)
	}
	ev.Msg("filer: param recorded")
	return nil
}

func (f *ReferenceFiler) BeginRun(batch BatchID, motusTagID tag.ID) (RunID, error) {
	if !f.openBatch[batch] {
		return 0, fmt.Errorf("filer: BeginRun on unknown or closed batch %d", batch)
	}
	f.nextRun++
	id := f.nextRun
	f.openRuns[id] = 0
	logger.Logger().Debug().Int64("run", int64(id)).Int64("tag", int64(motusTagID)).Msg("filer: run opened")
	return id, nil
}

func (f *ReferenceFiler) AddHit(run RunID, hit Hit) error {
	n, ok := f.openRuns[run]
	if !ok {
		return fmt.Errorf("filer: AddHit on unknown or closed run %d", run)
	}
	n++
	f.openRuns[run] = n
	if n%f.BatchSize == 0 {
		logger.Logger().Debug().Int64("run", int64(run)).Int("hits", n).Msg("filer: batch flush")
	}
	return nil
}

func (f *ReferenceFiler) EndRun(run RunID, numHits int) error {
	n, ok := f.openRuns[run]
	if !ok {
		return fmt.Errorf("filer: EndRun on unknown or closed run %d", run)
	}
	delete(f.openRuns, run)
	logger.Logger().Info().Int64("run", int64(run)).Int("hits", n).Int("reported", numHits).Msg("filer: run closed")
	return nil
}

func (f *ReferenceFiler) EndBatch(batch BatchID) error {
	if !f.openBatch[batch] {
		return fmt.Errorf("filer: EndBatch on unknown or closed batch %d", batch)
	}
	delete(f.openBatch, batch)
	logger.Logger().Info().Int64("batch", int64(batch)).Msg("filer: batch closed")
	return nil
}
