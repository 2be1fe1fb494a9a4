package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/miradorstack/ahsdp/internal/extractors"
)

const bcertTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<BundleCertificate>
  <GeneratedDate>%s</GeneratedDate>
  <ProductName>ProLiant DL360 Gen10</ProductName>
  <SerialNumber>%s</SerialNumber>
  <UUID>36383150-3630-5A43-3231-323334353637</UUID>
  <ROMVersion>U32 v2.72 (09/29/2022)</ROMVersion>
  <ILOVersion>iLO 5 v2.78</ILOVersion>
</BundleCertificate>
`

var healthyLines = []string{
	"%s iLO Kernel started",
	"%s Server power restored",
	"%s Embedded health check OK",
}

var faultLines = []string{
	"%s Power Supply 2 failure detected, AC Power Lost",
	"%s Fan 3 stalled, cooling degraded",
	"%s Smart Array controller reported drive 1I:1:2 predictive failure",
	"%s CRITICAL System Board Fault EFUSE1_PF_FAULT",
}

func main() {
	out := flag.String("out", "mock_bundle.ahs", "path of the .ahs bundle to write")
	captures := flag.Int("bb", 2, "number of BlackBox captures")
	fault := flag.Bool("fault", true, "include hardware fault events and counters")
	serial := flag.String("serial", "CZ20240301", "serial number written to bcert.pkg.xml")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	data, err := buildBundle(time.Now().UTC(), *serial, *captures, *fault)
	if err != nil {
		logger.Error("failed to build bundle", slog.Any("error", err))
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		logger.Error("failed to create output dir", slog.Any("error", err))
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("failed to write bundle", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("mock bundle written", slog.String("path", *out), slog.Int("captures", *captures), slog.Bool("fault", *fault))
}

func buildBundle(now time.Time, serial string, captures int, fault bool) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	bcert, err := gzipBytes([]byte(fmt.Sprintf(bcertTemplate, now.Format(time.RFC3339), serial)))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, captures)
	files := map[string][]byte{
		"bcert.pkg.xml": bcert,
		"clist.pkg":     append([]byte{0x01}, make([]byte, 50)...),
		"counters.pkg":  counters(fault),
		"CUST_INFO.DAT": []byte("Company=Example Corp\nContact=ops@example.com\nPhone=555 123 4567\n"),
	}
	for i := 0; i < captures; i++ {
		stamp := now.Add(-time.Duration(captures-i) * time.Hour)
		name := fmt.Sprintf("%04d-%s.bb.gz", i+1, stamp.Format("20060102"))
		payload, err := gzipBytes(blackBox(stamp, fault && i == captures-1))
		if err != nil {
			return nil, err
		}
		files[name] = payload
		names = append(names, name)
	}
	files["file.pkg.txt"] = fileListing(now, names)

	order := append([]string{"file.pkg.txt", "bcert.pkg.xml", "clist.pkg", "counters.pkg", "CUST_INFO.DAT"}, names...)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close bundle: %w", err)
	}
	return buf.Bytes(), nil
}

func fileListing(now time.Time, captures []string) []byte {
	var b strings.Builder
	b.WriteString("HPE Active Health System Log\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))
	for _, name := range captures {
		b.WriteString(name + "\n")
	}
	b.WriteString("bcert.pkg.xml\nclist.pkg\ncounters.pkg\nCUST_INFO.DAT\n")
	return []byte(b.String())
}

// counters writes a buffer covering the full layout plus one unmapped word.
func counters(fault bool) []byte {
	buf := make([]byte, extractors.LayoutSize()+extractors.CounterWordSize)
	put := func(offset int, v uint32) { binary.LittleEndian.PutUint32(buf[offset:], v) }
	put(0x20, 24)
	put(0x24, 48)
	put(0x28, 21)
	if fault {
		put(0x00, 3)
		put(0x14, 1)
		put(0x24, 91)
	}
	put(len(buf)-extractors.CounterWordSize, 0xDEADBEEF)
	return buf
}

func blackBox(start time.Time, fault bool) []byte {
	lines := append([]string(nil), healthyLines...)
	if fault {
		lines = append(lines, faultLines...)
	}
	var b strings.Builder
	for i, line := range lines {
		stamp := start.Add(time.Duration(i) * time.Minute).Format("2006-01-02 15:04:05")
		fmt.Fprintf(&b, line+"\r\n", stamp)
	}
	return []byte(b.String())
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}
