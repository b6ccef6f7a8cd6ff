package dto

import (
	"github.com/soundprediction/sifter"
	"github.com/soundprediction/sifter/pkg/search"
	"github.com/soundprediction/sifter/pkg/types"
)

// EntitiesResponse lists the searchable entities.
type EntitiesResponse struct {
	Entities []sifter.EntityInfo `json:"entities"`
}

// FieldsResponse is the selector view of an entity. FieldTable carries the
// compact "name||type" lines some clients parse directly.
type FieldsResponse struct {
	*search.SelectorView
	FieldTable string `json:"field_table"`
}

// SearchResponse is the outcome of a search request. Criteria is the
// serialized list to send back with the next request.
type SearchResponse struct {
	Entity       string               `json:"entity"`
	Criteria     string               `json:"criteria"`
	Descriptions []search.Description `json:"descriptions"`
	Summary      map[string]string    `json:"summary"`
	Records      []types.Record       `json:"records"`
	Count        int                  `json:"count"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

// NewSearchResponse converts a search result.
func NewSearchResponse(r *search.Result, page types.Page) SearchResponse {
	records := r.Records
	if records == nil {
		records = []types.Record{}
	}
	descs := []search.Description(r.Descriptions)
	if descs == nil {
		descs = []search.Description{}
	}
	return SearchResponse{
		Entity:       r.Entity,
		Criteria:     r.Criteria,
		Descriptions: descs,
		Summary:      r.Descriptions.Map(),
		Records:      records,
		Count:        r.Count,
		Limit:        page.Limit,
		Offset:       page.Offset,
	}
}
