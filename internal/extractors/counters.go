package extractors

import (
	"encoding/binary"
	"fmt"

	"github.com/miradorstack/ahsdp/internal/models"
)

// CounterDecoder turns counters.pkg bytes into named metrics.
type CounterDecoder struct {
	layout []CounterLayoutEntry
	known  map[int]struct{}
}

// NewCounterDecoder constructs a decoder over the built-in layout.
func NewCounterDecoder() *CounterDecoder {
	return &CounterDecoder{layout: counterLayout, known: knownOffsets}
}

// Decode never fails: entries beyond the buffer are skipped, non-zero words at
// unmapped aligned offsets are reported as unknown, and the remainder after the
// last full word is counted as trailing.
func (d *CounterDecoder) Decode(buf []byte) models.Diagnostics {
	diag := models.Diagnostics{
		Counters: make(models.CounterValues),
		Unknown:  make(map[string]uint32),
		Bytes:    len(buf),
		Trailing: len(buf) % CounterWordSize,
	}

	for _, entry := range d.layout {
		if entry.Offset < 0 || entry.Offset+CounterWordSize > len(buf) {
			continue
		}
		value := binary.LittleEndian.Uint32(buf[entry.Offset:])
		metrics, ok := diag.Counters[entry.Component]
		if !ok {
			metrics = make(map[string]uint32)
			diag.Counters[entry.Component] = metrics
		}
		metrics[entry.Metric] = value
	}

	aligned := len(buf) - diag.Trailing
	for offset := 0; offset < aligned; offset += CounterWordSize {
		if _, ok := d.known[offset]; ok {
			continue
		}
		if value := binary.LittleEndian.Uint32(buf[offset:]); value != 0 {
			diag.Unknown[UnknownOffsetKey(offset)] = value
		}
	}

	return diag
}

// DecodeCounters decodes buf with the built-in layout.
func DecodeCounters(buf []byte) models.Diagnostics {
	return NewCounterDecoder().Decode(buf)
}

// UnknownOffsetKey formats an offset the way unknown regions are keyed.
func UnknownOffsetKey(offset int) string {
	return fmt.Sprintf("0x%04x", offset)
}
