// Package extract turns fetched documents into candidate records.
package extract

import "github.com/roach88/climatevalue/internal/model"

// Extractor pulls candidate records out of one fetched document.
// Records are returned in document order.
type Extractor interface {
	Extract(doc []byte) ([]model.RawRecord, error)
}
