package models

// CounterValues groups decoded counter values by component, then metric.
type CounterValues map[string]map[string]uint32

// Value returns the decoded value for component/metric and whether it was
// present in the decoded buffer.
func (c CounterValues) Value(component, metric string) (uint32, bool) {
	metrics, ok := c[component]
	if !ok {
		return 0, false
	}
	v, ok := metrics[metric]
	return v, ok
}

// Diagnostics is the decoded form of a counters.pkg artifact.
type Diagnostics struct {
	Source   string            `json:"_source,omitempty"`
	Counters CounterValues     `json:"counters"`
	Bytes    int               `json:"bytes"`
	Unknown  map[string]uint32 `json:"unknown_offsets,omitempty"`
	Trailing int               `json:"trailing_bytes,omitempty"`
}

// Empty reports whether no counter was decoded.
func (d *Diagnostics) Empty() bool {
	return d == nil || len(d.Counters) == 0
}
