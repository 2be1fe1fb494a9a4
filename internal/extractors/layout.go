package extractors

import (
	"strings"

	"github.com/miradorstack/ahsdp/internal/models"
)

// CounterWordSize is the width of every counters.pkg value.
const CounterWordSize = 4

// CounterPolicy decides whether a decoded value is anomalous. The set of
// implementations is closed: CounterThreshold and TelemetryRange.
type CounterPolicy interface {
	policyKind() string
}

// CounterThreshold flags monotonic fault counters whose value exceeds Max.
type CounterThreshold struct {
	Max uint32
}

func (CounterThreshold) policyKind() string { return "counter" }

// TelemetryRange flags readings outside the inclusive [Lower, Upper] window.
type TelemetryRange struct {
	Lower uint32
	Upper uint32
}

func (TelemetryRange) policyKind() string { return "telemetry" }

// CounterLayoutEntry describes one 32-bit little-endian word in counters.pkg.
type CounterLayoutEntry struct {
	Offset      int
	Component   string
	Metric      string
	Description string
	Policy      CounterPolicy
	Severity    models.Severity
	Confidence  string
}

// Label returns the description or, when none is set, the humanised metric.
func (e CounterLayoutEntry) Label() string {
	if e.Description != "" {
		return e.Description
	}
	return strings.ReplaceAll(e.Metric, "_", " ")
}

// counterLayout is the known counters.pkg layout. Declaration order is the
// order findings are reported in.
var counterLayout = []CounterLayoutEntry{
	{Offset: 0x00, Component: "storage", Metric: "write_errors", Description: "Storage write error events", Policy: CounterThreshold{}, Severity: models.SeverityWarn, Confidence: models.ConfidenceHigh},
	{Offset: 0x04, Component: "storage", Metric: "read_errors", Description: "Storage read error events", Policy: CounterThreshold{}, Severity: models.SeverityWarn, Confidence: models.ConfidenceHigh},
	{Offset: 0x08, Component: "storage", Metric: "uncorrectable_errors", Description: "Uncorrectable media errors", Policy: CounterThreshold{}, Severity: models.SeverityError, Confidence: models.ConfidenceHigh},
	{Offset: 0x0C, Component: "storage", Metric: "dropped_io", Description: "Dropped I/O operations", Policy: CounterThreshold{}, Severity: models.SeverityWarn, Confidence: models.ConfidenceMedium},
	{Offset: 0x10, Component: "fan", Metric: "tach_faults", Description: "Fan tachometer faults", Policy: CounterThreshold{}, Severity: models.SeverityWarn, Confidence: models.ConfidenceMedium},
	{Offset: 0x14, Component: "fan", Metric: "stall_events", Description: "Fan stall events", Policy: CounterThreshold{}, Severity: models.SeverityError, Confidence: models.ConfidenceHigh},
	{Offset: 0x18, Component: "power", Metric: "psu_failures", Description: "Power supply failures", Policy: CounterThreshold{}, Severity: models.SeverityError, Confidence: models.ConfidenceHigh},
	{Offset: 0x1C, Component: "power", Metric: "voltage_low_events", Description: "Low input voltage events", Policy: CounterThreshold{}, Severity: models.SeverityWarn, Confidence: models.ConfidenceMedium},
	{Offset: 0x20, Component: "thermal", Metric: "ambient_celsius", Description: "Ambient temperature (°C)", Policy: TelemetryRange{Lower: 10, Upper: 45}, Severity: models.SeverityWarn, Confidence: models.ConfidenceMedium},
	{Offset: 0x24, Component: "thermal", Metric: "cpu_celsius", Description: "CPU temperature (°C)", Policy: TelemetryRange{Lower: 10, Upper: 85}, Severity: models.SeverityError, Confidence: models.ConfidenceMedium},
	{Offset: 0x28, Component: "thermal", Metric: "inlet_celsius", Description: "Inlet temperature (°C)", Policy: TelemetryRange{Lower: 5, Upper: 45}, Severity: models.SeverityWarn, Confidence: models.ConfidenceMedium},
	{Offset: 0x2C, Component: "network", Metric: "link_down_events", Description: "Network link down events", Policy: CounterThreshold{}, Severity: models.SeverityWarn, Confidence: models.ConfidenceMedium},
	{Offset: 0x30, Component: "network", Metric: "packet_errors", Description: "Packet error count", Policy: CounterThreshold{}, Severity: models.SeverityWarn, Confidence: models.ConfidenceMedium},
	{Offset: 0x34, Component: "firmware", Metric: "update_failures", Description: "Firmware update failures", Policy: CounterThreshold{}, Severity: models.SeverityError, Confidence: models.ConfidenceHigh},
	{Offset: 0x38, Component: "firmware", Metric: "rollback_events", Description: "Firmware rollback events", Policy: CounterThreshold{}, Severity: models.SeverityWarn, Confidence: models.ConfidenceMedium},
}

var knownOffsets = buildOffsetIndex(counterLayout)

func buildOffsetIndex(layout []CounterLayoutEntry) map[int]struct{} {
	index := make(map[int]struct{}, len(layout))
	for _, entry := range layout {
		index[entry.Offset] = struct{}{}
	}
	return index
}

// CounterLayout returns a copy of the known counters.pkg layout in
// declaration order.
func CounterLayout() []CounterLayoutEntry {
	return append([]CounterLayoutEntry(nil), counterLayout...)
}

// LayoutSize is the minimum buffer length that covers every known offset.
func LayoutSize() int {
	size := 0
	for _, entry := range counterLayout {
		if end := entry.Offset + CounterWordSize; end > size {
			size = end
		}
	}
	return size
}
