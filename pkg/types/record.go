package types

// Record is one stored entity instance. Values holds scalar fields by storage
// name; single relations hold the related id (int64) and multi relations a
// []int64 of related ids.
type Record struct {
	ID      int64          `json:"id"`
	Entity  string         `json:"entity"`
	Display string         `json:"display"`
	Values  map[string]any `json:"values"`
}

// Page bounds the records returned by an executor. A zero Limit returns every
// match.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ResultSet is what a storage executor returns for a predicate: the total
// number of matches and the requested page of them.
type ResultSet struct {
	Records []Record `json:"records"`
	Count   int      `json:"count"`
}

// Validate checks that the record can be stored.
func (r *Record) Validate() error {
	if r.Entity == "" {
		return ErrEmptyEntity
	}
	if r.ID <= 0 {
		return ErrInvalidID
	}
	return nil
}
