package models

// Inventory carries the hardware facts read from bcert.pkg.xml.
type Inventory struct {
	Source       string `json:"_source,omitempty"`
	ProductName  string `json:"ProductName,omitempty"`
	SerialNumber string `json:"SerialNumber,omitempty"`
	ROMVersion   string `json:"ROMVersion,omitempty"`
	ILO          string `json:"ILO,omitempty"`
}

// Detected reports whether any inventory artifact was parsed.
func (i Inventory) Detected() bool {
	return i.Source != ""
}

// Fields returns the labelled inventory values in report order.
func (i Inventory) Fields() [][2]string {
	return [][2]string{
		{"ProductName", i.ProductName},
		{"SerialNumber", i.SerialNumber},
		{"ROMVersion", i.ROMVersion},
		{"ILO", i.ILO},
	}
}

// FileSummary is the artifact listing from file.pkg.txt.
type FileSummary struct {
	Source string   `json:"_source,omitempty"`
	Files  []string `json:"files"`
}

// CustomerInfo holds key=value pairs read from cust_info.dat.
type CustomerInfo struct {
	Source    string            `json:"_source,omitempty"`
	Fields    map[string]string `json:"fields"`
	SizeBytes int64             `json:"_size_bytes,omitempty"`
}

// Identity describes the system and capture a bundle was taken from.
type Identity struct {
	Model        string    `json:"model,omitempty"`
	SerialNumber string    `json:"serial_number,omitempty"`
	UUID         string    `json:"uuid,omitempty"`
	Firmware     *Firmware `json:"firmware,omitempty"`
	Capture      *Capture  `json:"capture,omitempty"`
}

// Firmware versions reported by the platform.
type Firmware struct {
	SystemROM string `json:"system_rom,omitempty"`
	ILO       string `json:"ilo,omitempty"`
}

// Capture summarises the BlackBox captures referenced by a bundle.
type Capture struct {
	Source        string   `json:"source,omitempty"`
	Artifacts     []string `json:"artifacts,omitempty"`
	ArtifactCount int      `json:"artifact_count,omitempty"`
	Dates         []string `json:"dates,omitempty"`
	IDs           []string `json:"ids,omitempty"`
	BundleIDs     []string `json:"bundle_ids,omitempty"`
}

// Empty reports whether no identity fact was recovered.
func (id Identity) Empty() bool {
	return id.Model == "" && id.SerialNumber == "" && id.UUID == "" && id.Firmware == nil && id.Capture == nil
}
