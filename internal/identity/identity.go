// Package identity recovers which system and capture a bundle describes.
package identity

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/miradorstack/ahsdp/internal/models"
)

var (
	captureIDPattern   = regexp.MustCompile(`^(\d+)-`)
	captureDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	bundleIDPattern    = regexp.MustCompile(`\d{5,}`)
)

var captureSuffixes = []string{".bb", ".bb.gz", ".bb.zip"}

// Sources carries the raw material identity is derived from. Every field is
// optional.
type Sources struct {
	BcertXML    string
	FileListing []string
	BundleName  string
}

// Extract merges system facts from bcert.pkg.xml, capture facts from the
// file.pkg.txt listing and a hint from the bundle's file name.
func Extract(src Sources) models.Identity {
	var id models.Identity

	if src.BcertXML != "" {
		facts := parseBcert(src.BcertXML)
		id.Model = facts["ProductName"]
		id.SerialNumber = facts["SerialNumber"]
		id.UUID = facts["UUID"]
		if id.UUID == "" {
			id.UUID = facts["UID"]
		}
		if rom, ilo := facts["ROMVersion"], facts["ILOVersion"]; rom != "" || ilo != "" {
			id.Firmware = &models.Firmware{SystemROM: rom, ILO: ilo}
		}
	}

	if capture := captureFromListing(src.FileListing); capture != nil {
		id.Capture = mergeCapture(id.Capture, capture)
	}
	if hint := captureFromBundleName(src.BundleName); hint != nil {
		id.Capture = mergeCapture(id.Capture, hint)
	}
	return id
}

var bcertFields = map[string]struct{}{
	"ProductName":  {},
	"SerialNumber": {},
	"UUID":         {},
	"UID":          {},
	"ROMVersion":   {},
	"ILOVersion":   {},
}

// parseBcert returns the text of the first element carrying each wanted tag,
// at any depth. A malformed document yields no facts.
func parseBcert(text string) map[string]string {
	facts := make(map[string]string)
	seen := make(map[string]bool)

	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = charsetReader
	var capturing string
	var buf strings.Builder
	flush := func() {
		if capturing != "" {
			if v := strings.TrimSpace(buf.String()); v != "" {
				facts[capturing] = v
			}
		}
		capturing = ""
		buf.Reset()
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			flush()
			return facts
		}
		if err != nil {
			return map[string]string{}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			flush()
			name := t.Name.Local
			if _, ok := bcertFields[name]; ok && !seen[name] {
				seen[name] = true
				capturing = name
			}
		case xml.EndElement:
			flush()
		case xml.CharData:
			if capturing != "" {
				buf.Write(t)
			}
		}
	}
}

// charsetReader lets bcert documents declare a non-UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("bcert charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("bcert charset %q unsupported", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

func captureFromListing(lines []string) *models.Capture {
	var artifacts, ids, dates []string
	for _, raw := range lines {
		line := strings.TrimSpace(strings.TrimLeft(raw, "\uFEFF"))
		if line == "" || !isCaptureName(line) {
			continue
		}
		artifacts = append(artifacts, line)
		if m := captureIDPattern.FindStringSubmatch(line); m != nil {
			ids = append(ids, m[1])
		}
		if d := captureDatePattern.FindString(line); d != "" {
			dates = append(dates, d)
		}
	}
	if len(artifacts) == 0 && len(ids) == 0 && len(dates) == 0 {
		return nil
	}
	return &models.Capture{Artifacts: artifacts, IDs: ids, Dates: dates}
}

func isCaptureName(line string) bool {
	lower := strings.ToLower(line)
	for _, suffix := range captureSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func captureFromBundleName(name string) *models.Capture {
	if name == "" {
		return nil
	}
	capture := &models.Capture{Source: name}
	if id := bundleIDPattern.FindString(name); id != "" {
		capture.BundleIDs = []string{id}
	}
	return capture
}

// mergeCapture folds src into dest. List fields are deduplicated; dates and ids
// end up sorted while artifacts keep first-seen order.
func mergeCapture(dest, src *models.Capture) *models.Capture {
	if dest == nil {
		dest = &models.Capture{}
	}
	if src.Source != "" {
		dest.Source = src.Source
	}
	dest.Artifacts = appendUnique(dest.Artifacts, src.Artifacts...)
	dest.Dates = sortedUnique(append(dest.Dates, src.Dates...))
	dest.IDs = sortedUnique(append(dest.IDs, src.IDs...))
	dest.BundleIDs = sortedUnique(append(dest.BundleIDs, src.BundleIDs...))
	dest.ArtifactCount = len(dest.Artifacts)
	return dest
}

func appendUnique(dst []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range dst {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, item)
		}
	}
	return dst
}

func sortedUnique(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := appendUnique(nil, items...)
	sort.Strings(out)
	return out
}
