package models

// Review is one reseña as stored in the collection document and returned
// by the API. The JSON field names are the wire and storage contract.
type Review struct {
	ID       int64    `json:"id"`
	Authors  []string `json:"autores"`
	Title    string   `json:"titulo"`
	Series   string   `json:"serie"`
	Rating   int      `json:"valoracion"`
	Comments string   `json:"comentarios"`
}

// DefaultSeries is stored when a review is created without a series.
const DefaultSeries = "N/A"
