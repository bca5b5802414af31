package model

// Aggregate is the derived summary for one entity: the mean of every tracked
// numeric field over the entity's stored records.
//
// An Aggregate is a pure function of the record set it was computed from.
type Aggregate struct {
	EntityID    int64              `json:"entity_id"`
	RecordCount int                `json:"record_count"`
	Means       map[string]float64 `json:"means"`
	Samples     map[string]int     `json:"samples"`
	Rejected    map[string]int     `json:"rejected,omitempty"`
}

// Mean returns the mean for field and whether any record contributed to it.
func (a Aggregate) Mean(field string) (float64, bool) {
	if a.Samples[field] == 0 {
		return 0, false
	}
	v, ok := a.Means[field]
	return v, ok
}

// EntityAggregate pairs an aggregate with the entity it summarizes.
// Used by the correlation report, which joins on Entity.Locality.
type EntityAggregate struct {
	Entity    Entity    `json:"entity"`
	Aggregate Aggregate `json:"aggregate"`
}
