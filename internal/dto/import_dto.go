package dto

import "time"

// ImportResponse summarizes a spreadsheet upload
type ImportResponse struct {
	ProjectID    uint           `json:"project_id"`
	FileName     string         `json:"file_name"`
	ObjectKey    string         `json:"object_key,omitempty"`
	Sheet        string         `json:"sheet"`
	Columns      map[string]int `json:"columns"`
	Imported     int            `json:"imported"`
	UpdatedCount int            `json:"updated_count"`
}

// ImportRecordResponse is one entry of a project's upload history
type ImportRecordResponse struct {
	ID        uint           `json:"id"`
	FileName  string         `json:"file_name"`
	ObjectKey string         `json:"object_key,omitempty"`
	Sheet     string         `json:"sheet"`
	Imported  int            `json:"imported"`
	Columns   map[string]int `json:"columns"`
	CreatedAt time.Time      `json:"created_at"`
}
