package enrich

import "github.com/m-mizutani/envlake/pkg/models"

// BoundingBox is inclusive lat/lon range labeled by City.
type BoundingBox struct {
	City   models.City
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains returns true if (lat, lon) is in the box including its edges.
func (x BoundingBox) Contains(lat, lon float64) bool {
	return x.MinLat <= lat && lat <= x.MaxLat && x.MinLon <= lon && lon <= x.MaxLon
}

// DefaultBoxes returns built-in city boxes in priority order.
func DefaultBoxes() []BoundingBox {
	return []BoundingBox{
		{City: models.CityHanoi, MinLat: 20.9, MaxLat: 21.2, MinLon: 105.7, MaxLon: 106.1},
		{City: models.CityHCM, MinLat: 10.7, MaxLat: 11.0, MinLon: 106.4, MaxLon: 106.8},
		{City: models.CityDaNang, MinLat: 15.9, MaxLat: 16.2, MinLon: 108.0, MaxLon: 108.4},
	}
}

// Classifier labels coordinate by ordered boxes. The first matched box wins.
type Classifier struct {
	boxes []BoundingBox
}

// NewClassifier is constructor of Classifier. No boxes means DefaultBoxes.
func NewClassifier(boxes ...BoundingBox) *Classifier {
	if len(boxes) == 0 {
		boxes = DefaultBoxes()
	}
	return &Classifier{boxes: boxes}
}

// Classify returns City of (lat, lon), CityUnknown if no box contains it.
func (x *Classifier) Classify(lat, lon float64) models.City {
	for _, box := range x.boxes {
		if box.Contains(lat, lon) {
			return box.City
		}
	}
	return models.CityUnknown
}

var defaultClassifier = NewClassifier()

// Classify labels coordinate with DefaultBoxes.
func Classify(lat, lon float64) models.City {
	return defaultClassifier.Classify(lat, lon)
}
