package engine

import (
	"time"

	"marketsim/internal/domain"
)

// maxPatternSamples caps each pattern record's buffer.
const maxPatternSamples = 100

// Learner aggregates observed event shapes per type. Purely additive memory
// with a hard cap per record; it never infers or predicts.
type Learner struct {
	records map[string]*domain.PatternRecord
}

// NewLearner creates an empty learner.
func NewLearner() *Learner {
	return &Learner{records: make(map[string]*domain.PatternRecord)}
}

// Observe appends sample to the record for ptype, creating the record on
// first sight, dropping the oldest sample beyond the cap, and bumping the
// running count. The returned record is a copy safe to hand to subscribers.
func (l *Learner) Observe(ptype string, sample float64, now time.Time) domain.PatternRecord {
	rec, ok := l.records[ptype]
	if !ok {
		rec = &domain.PatternRecord{
			Type:    ptype,
			Samples: make([]float64, 0, maxPatternSamples),
		}
		l.records[ptype] = rec
	}

	if len(rec.Samples) >= maxPatternSamples {
		copy(rec.Samples, rec.Samples[1:])
		rec.Samples[maxPatternSamples-1] = sample
	} else {
		rec.Samples = append(rec.Samples, sample)
	}
	rec.Count++
	rec.UpdatedAt = now

	return snapshotRecord(rec)
}

// Get returns a copy of the record for ptype.
func (l *Learner) Get(ptype string) (domain.PatternRecord, bool) {
	rec, ok := l.records[ptype]
	if !ok {
		return domain.PatternRecord{}, false
	}
	return snapshotRecord(rec), true
}

// Len returns the number of distinct pattern types seen this session.
func (l *Learner) Len() int { return len(l.records) }

// MemoryEstimate is a rough byte count of the retained samples.
func (l *Learner) MemoryEstimate() int64 {
	var n int64
	for _, rec := range l.records {
		n += int64(len(rec.Samples)) * 8
	}
	return n
}

func snapshotRecord(rec *domain.PatternRecord) domain.PatternRecord {
	out := *rec
	out.Samples = make([]float64, len(rec.Samples))
	copy(out.Samples, rec.Samples)
	return out
}
