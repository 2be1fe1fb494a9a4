package bundle

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/miradorstack/ahsdp/internal/extractors"
	"github.com/miradorstack/ahsdp/internal/models"
)

var zipMagic = []byte("PK\x03\x04")

// binarySniffLen is how much of a payload is inspected by looksBinary.
const binarySniffLen = 1024

// BlackBoxResult is the normalised content of a set of BlackBox captures.
type BlackBoxResult struct {
	Records []models.LogRecord
	Sources []string
}

type textChunk struct {
	name string
	text string
}

// ParseBlackBox turns BlackBox captures into log records. Captures that cannot
// be opened are logged and skipped so one bad file does not sink the run.
func ParseBlackBox(paths []string, logger *slog.Logger) BlackBoxResult {
	if logger == nil {
		logger = slog.Default()
	}
	result := BlackBoxResult{Records: []models.LogRecord{}, Sources: make([]string, 0, len(paths))}
	for _, path := range paths {
		base := filepath.Base(path)
		result.Sources = append(result.Sources, base)

		chunks, err := readTextChunks(path)
		if err != nil {
			logger.Warn("blackbox capture unreadable", slog.String("artifact", base), slog.Any("error", err))
			continue
		}
		for _, chunk := range chunks {
			source := base
			if chunk.name != base {
				source = base + ":" + chunk.name
			}
			result.Records = append(result.Records, extractors.ParseLines(source, chunk.text)...)
		}
	}
	return result
}

func readTextChunks(path string) ([]textChunk, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)

	switch {
	case bytes.HasPrefix(blob, zipMagic):
		return zipTextChunks(blob)
	case bytes.HasPrefix(blob, gzipMagic):
		data, err := gunzip(blob)
		if err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
		return []textChunk{{name: base, text: DecodeText(data)}}, nil
	case looksBinary(blob):
		return nil, nil
	}
	return []textChunk{{name: base, text: DecodeText(blob)}}, nil
}

func zipTextChunks(blob []byte) ([]textChunk, error) {
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil && err != zip.ErrInsecurePath {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	chunks := make([]textChunk, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipMember(f)
		if err != nil {
			return nil, err
		}
		if looksBinary(data) {
			continue
		}
		chunks = append(chunks, textChunk{name: f.Name, text: DecodeText(data)})
	}
	return chunks, nil
}

func readZipMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open member %q: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read member %q: %w", f.Name, err)
	}
	return data, nil
}

// looksBinary reports whether more than a fifth of the leading bytes are
// control characters other than tab, newline, vertical tab, form feed and
// carriage return.
func looksBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > binarySniffLen {
		sample = sample[:binarySniffLen]
	}
	control := 0
	for _, b := range sample {
		if b < 9 || (b > 13 && b < 32) {
			control++
		}
	}
	return float64(control)/float64(len(sample)) > 0.2
}

// DecodeText decodes log bytes as UTF-8, then UTF-16LE, then Latin-1, taking
// the first encoding the bytes are valid in.
func DecodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	if validUTF16LE(data) {
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
		if err == nil {
			return string(decoded)
		}
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
	}
	return string(decoded)
}

// validUTF16LE rejects odd lengths and unpaired surrogates.
func validUTF16LE(data []byte) bool {
	if len(data)%2 != 0 {
		return false
	}
	for i := 0; i < len(data); i += 2 {
		unit := rune(uint16(data[i]) | uint16(data[i+1])<<8)
		if !utf16.IsSurrogate(unit) {
			continue
		}
		if unit >= 0xDC00 || i+3 >= len(data) {
			return false
		}
		next := rune(uint16(data[i+2]) | uint16(data[i+3])<<8)
		if next < 0xDC00 || next > 0xDFFF {
			return false
		}
		i += 2
	}
	return true
}
