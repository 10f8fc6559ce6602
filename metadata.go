package parcel

// Metadata holds the package-level fields embedded in a parcel's
// header: the package version string (opaque to this library, assigned
// by whatever package-manager layer sits above it) and the list of
// other parcels this one depends on by name. This is distinct from the
// header's own `version` field, which is the on-disk format version.
type Metadata struct {
	Version string   `yaml:"version"`
	Depends []string `yaml:"depends,omitempty"`
}

// currentVersion is the on-disk format version this implementation
// reads and writes. Load rejects any other value with a
// VersionMismatchError rather than attempting to interpret an unknown
// layout.
const currentVersion = 1
