package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// ImportSchema is the top-level JSON structure for a hierarchy import.
type ImportSchema struct {
	Nodes          []NodeImport          `json:"nodes"`
	Projects       []ProjectImport       `json:"projects,omitempty"`
	FrameRecords   []FrameRecordImport   `json:"frame_records,omitempty"`
	ProjectRecords []ProjectRecordImport `json:"project_records,omitempty"`
}

// NodeImport defines a tree node. RelatedRef links a coordinator node to
// its planning peer; either side may carry it.
type NodeImport struct {
	Ref        string  `json:"ref"`
	ParentRef  *string `json:"parent_ref,omitempty"`
	Name       string  `json:"name"`
	View       string  `json:"view"`
	Kind       string  `json:"kind"`
	RelatedRef *string `json:"related_ref,omitempty"`
}

// ProjectImport defines a project and its planning placement.
type ProjectImport struct {
	Ref         string  `json:"ref"`
	Name        string  `json:"name"`
	Programmed  *bool   `json:"programmed,omitempty"`
	ClassRef    *string `json:"class_ref,omitempty"`
	LocationRef *string `json:"location_ref,omitempty"`
	GroupRef    *string `json:"group_ref,omitempty"`
	Budget      string  `json:"budget,omitempty"`
}

// FrameRecordImport defines a frame budget of a coordinator node.
type FrameRecordImport struct {
	NodeRef      string `json:"node_ref"`
	Year         int    `json:"year"`
	FrameView    bool   `json:"frame_view,omitempty"`
	FrameBudget  string `json:"frame_budget"`
	BudgetChange string `json:"budget_change,omitempty"`
}

// ProjectRecordImport defines the planned spend of a project for a year.
type ProjectRecordImport struct {
	ProjectRef string `json:"project_ref"`
	Year       int    `json:"year"`
	Value      string `json:"value"`
}

// LoadImportSchema reads and parses a hierarchy import JSON file.
func LoadImportSchema(path string) (*ImportSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseImportSchema(data)
}

// ParseImportSchema parses an import document. Unknown fields are rejected.
func ParseImportSchema(data []byte) (*ImportSchema, error) {
	var schema ImportSchema
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&schema); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	return &schema, nil
}
