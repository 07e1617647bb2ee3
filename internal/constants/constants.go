package constants

// State directory layout
const (
	StateDirName       = ".dupefiles"
	IndexFileName      = "index.json"
	GroupsFileName     = "groups.json"
	ConfigFileName     = "config.yaml"
	DefaultLogFileName = "dupefiles.log"
)

// File permissions
const (
	StandardDirPerms  = 0o755 // Standard directory permissions
	StandardFilePerms = 0o644 // Standard file permissions
)

// Hash algorithms
const (
	HashAlgorithmSHA256  = "sha256"
	HashAlgorithmSHA512  = "sha512"
	HashAlgorithmSHA1    = "sha1"
	HashAlgorithmMD5     = "md5"
	HashAlgorithmBLAKE2B = "blake2b"
	HashAlgorithmBLAKE3  = "blake3"

	DefaultHashAlgorithm = HashAlgorithmSHA256
)

// Snapshot compression types
const (
	CompressionTypeNone = "none"
	CompressionTypeGzip = "gzip"
	CompressionTypeZstd = "zstd"

	// MaxDecompressionSize caps a decompressed snapshot (1 GiB)
	MaxDecompressionSize = 1 << 30
)

// Output modes
const (
	OutputModeConsole = "console"
	OutputModeLogFile = "logfile"
	OutputModeSilent  = "silent"
)

// Export formats
const (
	ExportFormatStructured = "structured"
	ExportFormatTabular    = "tabular"
)

// Scan and comparison defaults
const (
	CompareBlockSize   = 4096
	HashBufferSize     = 64 * 1024
	DefaultHashWorkers = 4
	SnapshotVersion    = 1
)

// PlaceholderSuffix is appended to a path replaced by an empty marker file
const PlaceholderSuffix = ".dupe"
