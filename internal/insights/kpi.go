package insights

// Kpi value formats understood by the dashboard.
const (
	FormatCurrency = "currency"
	FormatPercent  = "percent"
	FormatNumber   = "number"
)

// NotAvailable is the literal KPI value for metrics the provider cannot
// compute. Distinct from Unavailable: the provider answered, the metric just
// does not exist.
const NotAvailable = "N/A"

// Kpi is one display metric produced by an adapter. Value is a number or the
// literal string "N/A".
type Kpi struct {
	Label        string    `json:"label"`
	Value        any       `json:"value"`
	Format       string    `json:"format,omitempty"`
	DeltaPercent *float64  `json:"deltaPercent,omitempty"`
	Sparkline    []float64 `json:"sparklineData,omitempty"`
}
