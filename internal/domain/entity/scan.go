package entity

// ScanOptions carries the values given on the command line.
// A nil pointer means the flag was not given.
type ScanOptions struct {
	Proxy     *string
	FromBlock *uint64
	ToBlock   *uint64
	Expanded  *bool
	Unique    bool
	Format    ReportFormat
}

// RangeDefaults are used for any option left unset.
type RangeDefaults struct {
	Proxy     string
	FromBlock uint64
}

// ScanRange is a fully resolved aggregator run.
type ScanRange struct {
	Proxy     string
	FromBlock uint64
	ToBlock   uint64
	Expanded  bool
}

// ReportFormat selects how the gas report is rendered.
type ReportFormat string

const (
	ReportFormatText ReportFormat = "text"
	ReportFormatJSON ReportFormat = "json"
)
