package schema

// Table is a rectangular block of cell text as read from one sheet or CSV file.
// Rows may be ragged; consumers pad as needed.
type Table struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// Workbook groups the three logical input tables in their role order.
type Workbook struct {
	Grid       Table `json:"grid"`
	Identities Table `json:"identities"`
	Catalog    Table `json:"catalog"`
	// Warnings collects non-fatal issues from reading the source files.
	Warnings []RowWarning `json:"warnings,omitempty"`
}

// ShiftGridCell is one (person, date) cell of the supervisor grid in long format.
type ShiftGridCell struct {
	PersonLabel string `json:"personLabel"`
	DateLabel   string `json:"dateLabel"`
	RawValue    string `json:"rawValue"`
	Row         int    `json:"row"`    // 1-indexed sheet row
	Column      int    `json:"column"` // 0-indexed sheet column
}

// IdentityRecord is one canonical employee from the identity catalog.
type IdentityRecord struct {
	ExternalID     string            `json:"externalId"`
	FullName       string            `json:"fullName"`
	NormalizedName string            `json:"normalizedName"`
	Department     string            `json:"department"`
	Manager        string            `json:"manager"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	SourceRow      int               `json:"sourceRow"`
}

// ShiftCatalogEntry pairs a raw time-range descriptor with its short code.
type ShiftCatalogEntry struct {
	Code       string `json:"code"`
	Descriptor string `json:"descriptor"`
	SourceRow  int    `json:"sourceRow"`
}

// ColumnMapping defines how source columns map to canonical fields.
type ColumnMapping struct {
	Direct map[string]string `json:"direct" yaml:"direct"`
}

// Canonical field names produced by header inference.
const (
	FieldFullName   = "fullName"
	FieldExternalID = "externalId"
	FieldDepartment = "department"
	FieldManager    = "manager"
	FieldCode       = "code"
	FieldDescriptor = "descriptor"
)
