package models

import "time"

// FileMeta is a lightweight description of a YAML file in the workspace.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
