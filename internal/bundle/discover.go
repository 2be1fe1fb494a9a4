package bundle

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Artifact names recognised outside BlackBox captures. Matching ignores case.
const (
	ArtifactBcert    = "bcert.pkg.xml"
	ArtifactFilePkg  = "file.pkg.txt"
	ArtifactClist    = "clist.pkg"
	ArtifactCounters = "counters.pkg"
	ArtifactCustInfo = "cust_info.dat"
)

var supportedArtifacts = map[string]struct{}{
	ArtifactBcert:    {},
	ArtifactFilePkg:  {},
	ArtifactClist:    {},
	ArtifactCounters: {},
	ArtifactCustInfo: {},
}

var blackBoxSuffixes = []string{".bb", ".zbb", ".bb.gz", ".bb.zip"}

// Artifacts lists what discovery found under a workspace root.
type Artifacts struct {
	// Files maps a lowercased artifact name to its path. When a name occurs
	// more than once the last one walked wins.
	Files map[string]string
	// BlackBox holds BlackBox capture paths, sorted.
	BlackBox []string
}

// Path returns the discovered path for an artifact name.
func (a Artifacts) Path(name string) (string, bool) {
	p, ok := a.Files[name]
	return p, ok
}

// Usable reports whether a run has anything to parse.
func (a Artifacts) Usable(bbEnabled bool) bool {
	return len(a.Files) > 0 || (bbEnabled && len(a.BlackBox) > 0)
}

// IsBlackBox reports whether name looks like a BlackBox capture.
func IsBlackBox(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range blackBoxSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Discover walks root and collects recognised artifacts.
func Discover(root string) (Artifacts, error) {
	found := Artifacts{Files: make(map[string]string)}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		lower := strings.ToLower(d.Name())
		if _, ok := supportedArtifacts[lower]; ok {
			found.Files[lower] = path
			return nil
		}
		if IsBlackBox(lower) {
			found.BlackBox = append(found.BlackBox, path)
		}
		return nil
	})
	if err != nil {
		return Artifacts{}, err
	}
	sort.Strings(found.BlackBox)
	return found, nil
}
