package models

// RemoteItem describes a document in a remote system before its content is fetched
type RemoteItem struct {
	ExternalID   string `json:"external_id"` // Confluence page id or SharePoint file unique id
	Title        string `json:"title"`
	URL          string `json:"url"`           // Browser URL; the document identity in the store
	LastModified string `json:"last_modified"` // ISO-8601 modification marker from the remote system
	Scope        string `json:"scope"`         // Space key or folder the item was listed from
	Extension    string `json:"extension,omitempty"`
	Source       string `json:"source"`
}

// Metadata returns the metadata every chunk of this item will carry
func (r RemoteItem) Metadata() ChunkMetadata {
	return ChunkMetadata{
		PageID:       r.ExternalID,
		Title:        r.Title,
		URL:          r.URL,
		LastModified: r.LastModified,
	}
}
