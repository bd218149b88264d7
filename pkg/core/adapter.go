package core

// AdapterConfig holds connection settings for one customer database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
}

// Column represents a column in a customer table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata describes one customer table, used when validating
// proposed mappings against the live schema.
type TableMetadata struct {
	Schema  string
	Name    string
	Columns []Column
}

// HasColumn reports whether the table has a column with the given name.
func (m *TableMetadata) HasColumn(name string) bool {
	for _, c := range m.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
