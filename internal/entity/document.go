package entity

// Document is an uploaded certificate. The analyzer never persists it.
type Document struct {
	Name        string `json:"name,omitempty"`
	MediaType   string `json:"media_type"`
	PropertyRef string `json:"property_ref,omitempty"` // opaque passthrough from the caller
	Data        []byte `json:"-"`
}
