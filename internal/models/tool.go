package models

// Tool is an entry of the /tools registry.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Schema      map[string]interface{} `json:"schema"`
}

// ToolList is the body returned by GET /tools.
type ToolList struct {
	Tools []Tool `json:"tools"`
}
