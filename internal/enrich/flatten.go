package enrich

import (
	"time"

	"github.com/m-mizutani/envlake/internal"
	"github.com/m-mizutani/envlake/pkg/models"
)

var logger = internal.Logger

// Flattener iterates FlatRecords of one RawEvent. It can be consumed only once.
type Flattener struct {
	ev         *models.RawEvent
	ingestedAt time.Time
	idx        int
	skipped    int
}

// NewFlattener is constructor of Flattener
func NewFlattener(ev *models.RawEvent, ingestedAt time.Time) *Flattener {
	return &Flattener{
		ev:         ev,
		ingestedAt: ingestedAt,
	}
}

// Next returns next FlatRecord. Measurements with non-positive timestamp are
// skipped. ok is false after the last one.
func (x *Flattener) Next() (rec models.FlatRecord, ok bool) {
	for x.idx < len(x.ev.Measurements) {
		m := x.ev.Measurements[x.idx]
		x.idx++

		if m.Timestamp <= 0 {
			x.skipped++
			logger.WithField("topic", x.ev.Topic).WithField("index", x.idx-1).
				Warn("Measurement without timestamp is dropped")
			continue
		}

		return models.FlatRecord{
			TimestampUnix: m.Timestamp,
			Coord:         x.ev.Coord,
			Metrics:       m.Metrics,
			IngestedAt:    x.ingestedAt,
		}, true
	}

	return models.FlatRecord{}, false
}

// Skipped returns number of dropped measurements so far
func (x *Flattener) Skipped() int {
	return x.skipped
}
