package bundle

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"github.com/miradorstack/ahsdp/internal/models"
)

var gzipMagic = []byte{0x1f, 0x8b}

var bcertTags = map[string]*regexp.Regexp{
	"ProductName":  bcertTag("ProductName"),
	"SerialNumber": bcertTag("SerialNumber"),
	"ROMVersion":   bcertTag("ROMVersion"),
	"ILOVersion":   bcertTag("ILOVersion"),
}

func bcertTag(tag string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<` + tag + `>(.*?)</` + tag + `>`)
}

// CounterDecoder decodes raw counters.pkg bytes.
type CounterDecoder interface {
	Decode(buf []byte) models.Diagnostics
}

// Parsed holds everything read from the non-BlackBox artifacts.
type Parsed struct {
	Summary      models.FileSummary
	Inventory    models.Inventory
	Diagnostics  *models.Diagnostics
	CustomerInfo *models.CustomerInfo
	// BcertXML is the decompressed bcert.pkg.xml document, undecoded, kept
	// for identity extraction.
	BcertXML string
}

// ParseArtifacts reads every recognised non-BlackBox artifact.
func ParseArtifacts(found Artifacts, decoder CounterDecoder) (Parsed, error) {
	parsed := Parsed{Summary: models.FileSummary{Files: []string{}}}

	if path, ok := found.Path(ArtifactBcert); ok {
		raw, err := ReadMaybeGzip(path)
		if err != nil {
			return Parsed{}, err
		}
		parsed.BcertXML = string(raw)
		parsed.Inventory = ParseBcert(filepath.Base(path), strings.ToValidUTF8(string(raw), "\uFFFD"))
	}
	if path, ok := found.Path(ArtifactFilePkg); ok {
		summary, err := ParseFilePkg(path)
		if err != nil {
			return Parsed{}, err
		}
		parsed.Summary = summary
	}
	if path, ok := found.Path(ArtifactCounters); ok {
		diag, err := ParseCounters(path, decoder)
		if err != nil {
			return Parsed{}, err
		}
		parsed.Diagnostics = &diag
	}
	if path, ok := found.Path(ArtifactCustInfo); ok {
		info, err := ParseCustInfo(path)
		if err != nil {
			return Parsed{}, err
		}
		parsed.CustomerInfo = &info
	}
	return parsed, nil
}

// ReadMaybeGzip returns the file's bytes, transparently gunzipping them.
func ReadMaybeGzip(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if bytes.HasPrefix(data, gzipMagic) {
		data, err = gunzip(data)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", filepath.Base(path), err)
		}
	}
	return data, nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// ParseBcert extracts the inventory fields from bcert.pkg.xml text. Tag
// matching ignores case and missing tags leave the field empty.
func ParseBcert(source, text string) models.Inventory {
	tag := func(name string) string {
		m := bcertTags[name].FindStringSubmatch(text)
		if m == nil {
			return ""
		}
		return strings.TrimSpace(m[1])
	}
	return models.Inventory{
		Source:       source,
		ProductName:  tag("ProductName"),
		SerialNumber: tag("SerialNumber"),
		ROMVersion:   tag("ROMVersion"),
		ILO:          tag("ILOVersion"),
	}
}

// ParseFilePkg lists the non-empty lines of file.pkg.txt.
func ParseFilePkg(path string) (models.FileSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.FileSummary{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	files := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return models.FileSummary{Source: filepath.Base(path), Files: files}, nil
}

// ParseCounters decodes counters.pkg with decoder.
func ParseCounters(path string, decoder CounterDecoder) (models.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Diagnostics{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	diag := decoder.Decode(data)
	diag.Source = filepath.Base(path)
	return diag, nil
}

// ParseCustInfo reads key=value lines from cust_info.dat. Files that are not
// UTF-8 text only report their size.
func ParseCustInfo(path string) (models.CustomerInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.CustomerInfo{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	info := models.CustomerInfo{Source: filepath.Base(path), Fields: make(map[string]string)}
	if !utf8.Valid(data) {
		info.SizeBytes = int64(len(data))
		return info, nil
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		info.Fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return info, nil
}
