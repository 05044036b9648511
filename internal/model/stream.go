package model

import "time"

// Stream is a user-defined content container. Entries of a stream live in
// their own table whose columns are the slugs of the assigned fields.
type Stream struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Namespace   string    `json:"namespace"`
	Prefix      string    `json:"prefix,omitempty"`
	About       string    `json:"about,omitempty"`
	TitleColumn string    `json:"title_column,omitempty"`
	Sorting     string    `json:"sorting"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the name of the table holding the stream's entries.
func (s *Stream) TableName() string {
	return s.Prefix + s.Slug
}

// Sorting modes for stream entries.
const (
	SortingTitle  = "title"
	SortingCustom = "custom"
)

// StreamSpec is the input for creating a stream.
type StreamSpec struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Namespace string `json:"namespace"`
	Prefix    string `json:"prefix,omitempty"`
	About     string `json:"about,omitempty"`
	Sorting   string `json:"sorting,omitempty"`
}
