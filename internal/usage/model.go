package usage

// Counter names.
const (
	CounterVisits = "visits"
	CounterUsage  = "usage"
)

// Stats is a snapshot of the service counters.
type Stats struct {
	Visits int64 `json:"visits"`
	Usage  int64 `json:"usage"`
}
