package enrich

import (
	"time"

	"github.com/m-mizutani/envlake/pkg/models"
)

// Enricher converts FlatRecord to EnrichedRecord.
type Enricher struct {
	classifier *Classifier
}

// NewEnricher is constructor of Enricher. nil classifier means default one.
func NewEnricher(classifier *Classifier) *Enricher {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Enricher{classifier: classifier}
}

// Enrich adds City and UTC timestamp to FlatRecord. offset is log offset of
// the originating message.
func (x *Enricher) Enrich(rec models.FlatRecord, offset int64) *models.EnrichedRecord {
	return &models.EnrichedRecord{
		FlatRecord: rec,
		City:       x.classifier.Classify(rec.Coord.Latitude, rec.Coord.Longitude),
		Timestamp:  time.Unix(rec.TimestampUnix, 0).UTC(),
		Offset:     offset,
	}
}
