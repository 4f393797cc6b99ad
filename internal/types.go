package internal

// EntityType identifies what kind of records a classified sheet or table holds.
type EntityType string

const (
	EntityVehicle            EntityType = "vehicles"
	EntityMaintenanceHistory EntityType = "maintenance_history"
	EntitySupply             EntityType = "supplies"
	EntityErrorCode          EntityType = "error_codes"
	// EntityMasterCombined rows carry a full vehicle snapshot plus, when the
	// sheet records a performed service, one maintenance-history entry.
	EntityMasterCombined EntityType = "master"
)

// RawSheet is one sheet (or HTML table) flattened to rows of cell text.
// Produced by the workbook/HTML readers, consumed by the classifier.
type RawSheet struct {
	Name string
	Rows [][]string
}

// Classification is the winner-take-all result for a single sheet.
type Classification struct {
	SheetName      string
	Entity         EntityType
	HeaderRowIndex int
	Headers        []string
	Score          int
}

type VehicleRecord struct {
	PlateNumber          string
	Model                string
	Department           string
	CurrentHours         float64
	CurrentKm            float64
	NextMaintenanceHours float64
	MaintenanceInterval  float64
	Status               string
	ProjectID            *int64
	ImportedFrom         string
}

// MaintenanceRecord references its vehicle by plate number; the store resolves
// the plate to a vehicle id at write time.
type MaintenanceRecord struct {
	PlateNumber string
	Date        string // YYYY-MM-DD
	Type        string
	Hours       float64
	Km          float64
	Cost        float64
	Description string
	Source      string
	Raw         string
}

type DriverLogRecord struct {
	Date        string
	AssetCode   string
	OdoHours    float64
	OdoKm       float64
	Description string
}

type SupplyRecord struct {
	AssetCode           string
	Group               string
	Name                string
	Code                string
	DonaldsonCode       string
	Unit                string
	Quantity            float64
	MaintenanceInterval *float64
}

type ErrorCodeRecord struct {
	Code        string
	Description string
	FixSteps    string
}

// StoredVehicle is a vehicles row as persisted, surrogate id included.
type StoredVehicle struct {
	ID int64
	VehicleRecord
	CreatedAt string
	UpdatedAt string
}

type StoredErrorCode struct {
	ID int64
	ErrorCodeRecord
	CreatedAt string
	UpdatedAt string
}

// RepairReport is one row scraped from an external repair-tracking HTML table.
type RepairReport struct {
	MachineCode  string
	LicensePlate string
	MachineName  string
	Department   string
	ReportDate   string
	RepairStaff  string
	Description  string
}

type DiagLevel string

const (
	DiagInfo    DiagLevel = "info"
	DiagWarning DiagLevel = "warning"
)

// Diagnostic is a per-row or per-sheet issue accumulated during an import.
// Diagnostics are reported alongside results, never raised as errors.
type Diagnostic struct {
	Level DiagLevel
	Sheet string
	Msg   string
}
