package bundle

import (
	"path/filepath"
	"testing"

	"github.com/miradorstack/ahsdp/internal/models"
)

type fakeDecoder struct {
	seen int
}

func (f *fakeDecoder) Decode(buf []byte) models.Diagnostics {
	f.seen = len(buf)
	return models.Diagnostics{Bytes: len(buf), Counters: models.CounterValues{"storage": {"write_errors": 1}}}
}

const bcertXML = `<?xml version="1.0"?>
<Cert>
  <productname> ProLiant DL380 Gen10 </productname>
  <SerialNumber>CZJ1234567</SerialNumber>
  <ROMVersion>U30 v2.80</ROMVersion>
  <ILOVersion>iLO 5 v2.78</ILOVersion>
</Cert>`

func TestParseArtifacts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bcert.pkg.xml"), gzipBytes(t, []byte(bcertXML)))
	writeFile(t, filepath.Join(root, "file.pkg.txt"), []byte("one.bb\n\n  two.bb  \r\n"))
	writeFile(t, filepath.Join(root, "counters.pkg"), make([]byte, 12))
	writeFile(t, filepath.Join(root, "cust_info.dat"), []byte("Company = Acme\nnoise\nContact=ops@example.com\n"))

	found, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	decoder := &fakeDecoder{}
	parsed, err := ParseArtifacts(found, decoder)
	if err != nil {
		t.Fatalf("ParseArtifacts: %v", err)
	}

	inv := parsed.Inventory
	if inv.ProductName != "ProLiant DL380 Gen10" || inv.SerialNumber != "CZJ1234567" || inv.ILO != "iLO 5 v2.78" {
		t.Fatalf("unexpected inventory %+v", inv)
	}
	if inv.Source != "bcert.pkg.xml" {
		t.Fatalf("unexpected inventory source %q", inv.Source)
	}
	if len(parsed.Summary.Files) != 2 || parsed.Summary.Files[1] != "two.bb" {
		t.Fatalf("unexpected file listing %v", parsed.Summary.Files)
	}
	if parsed.Diagnostics == nil || parsed.Diagnostics.Source != "counters.pkg" || decoder.seen != 12 {
		t.Fatalf("unexpected diagnostics %+v", parsed.Diagnostics)
	}
	if parsed.CustomerInfo == nil || parsed.CustomerInfo.Fields["Company"] != "Acme" || len(parsed.CustomerInfo.Fields) != 2 {
		t.Fatalf("unexpected customer info %+v", parsed.CustomerInfo)
	}
	if parsed.BcertXML == "" {
		t.Fatalf("expected bcert text to be kept")
	}
}

func TestParseArtifactsEmpty(t *testing.T) {
	parsed, err := ParseArtifacts(Artifacts{Files: map[string]string{}}, &fakeDecoder{})
	if err != nil {
		t.Fatalf("ParseArtifacts: %v", err)
	}
	if parsed.Diagnostics != nil || parsed.Inventory.Detected() || parsed.Summary.Files == nil {
		t.Fatalf("unexpected parse of empty artifact set: %+v", parsed)
	}
}

func TestParseCustInfoBinary(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "cust_info.dat"), []byte{0xff, 0xfe, 0x00, 0x80, 0x81})
	info, err := ParseCustInfo(path)
	if err != nil {
		t.Fatalf("ParseCustInfo: %v", err)
	}
	if info.SizeBytes != 5 || len(info.Fields) != 0 {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestParseBcertMissingTags(t *testing.T) {
	inv := ParseBcert("bcert.pkg.xml", "<Cert><SerialNumber>ABC</SerialNumber></Cert>")
	if inv.SerialNumber != "ABC" || inv.ProductName != "" || !inv.Detected() {
		t.Fatalf("unexpected inventory %+v", inv)
	}
}
