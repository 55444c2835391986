package models

// MetadataVersion is the schema version written to the metadata file.
const MetadataVersion = 1

// Fingerprint identifies a file revision by size and modification time.
type Fingerprint struct {
	Size    int64 `json:"size"`
	MtimeMs int64 `json:"mtimeMs"`
}

// Metadata is the snapshot consulted by incremental rebuilds. It is not part
// of the manifest consumed by viewers.
type Metadata struct {
	Version int                    `json:"version"`
	Profile *Fingerprint           `json:"profile"`
	Notes   map[string]Fingerprint `json:"notes"`
}

// NewMetadata returns an empty snapshot at the current schema version.
func NewMetadata() *Metadata {
	return &Metadata{
		Version: MetadataVersion,
		Notes:   make(map[string]Fingerprint),
	}
}
