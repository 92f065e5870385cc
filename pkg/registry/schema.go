// pkg/registry/schema.go
package registry

// Subject is one registered business metric: where its facts live in
// the star schema and how users refer to it.
type Subject struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Code        string               `json:"code"`
	Description string               `json:"description,omitempty"`
	Domain      string               `json:"domain,omitempty"`
	FactTable   string               `json:"fact_table"`
	ValueColumn string               `json:"value_column"`
	Unit        string               `json:"unit,omitempty"`
	Synonyms    []string             `json:"synonyms,omitempty"`
	Dimensions  map[string]Dimension `json:"dimensions,omitempty"`
}

// Dimension describes one dimension table reachable from a subject's
// fact table.
type Dimension struct {
	Table      string `json:"table"`
	JoinKey    string `json:"join_key"`
	NameColumn string `json:"name_column"`
}

// Catalog is the on-disk shape of the subject registry file.
type Catalog struct {
	Version     string    `json:"version"`
	LastUpdated string    `json:"last_updated,omitempty"`
	Subjects    []Subject `json:"subjects"`
}

// catalogSchema validates registry files before any entry is indexed.
// A file that fails validation is rejected whole: identifier fields are
// interpolated into SQL, so the pattern checks here are load-bearing.
const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "subjects"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "last_updated": {"type": "string"},
    "subjects": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "code", "fact_table", "value_column"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "code": {"type": "string", "pattern": "^[a-z][a-z0-9_]*$"},
          "description": {"type": "string"},
          "domain": {"type": "string"},
          "fact_table": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"},
          "value_column": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"},
          "unit": {"type": "string"},
          "synonyms": {"type": "array", "items": {"type": "string", "minLength": 1}},
          "dimensions": {
            "type": "object",
            "additionalProperties": {
              "type": "object",
              "required": ["table", "join_key", "name_column"],
              "properties": {
                "table": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"},
                "join_key": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"},
                "name_column": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"}
              }
            }
          }
        }
      }
    }
  }
}`
