package export

import (
	"fmt"

	"jobboard-hq/custodian/pkg/evidence"
)

// Format names accepted by New.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// New returns the exporter for format.
func New(format string) (evidence.Exporter, error) {
	switch format {
	case FormatJSON, "":
		return NewJSONExporter(true), nil
	case FormatCSV:
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want json or csv)", format)
	}
}
