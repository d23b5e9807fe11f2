package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default herd data directory name (relative to home).
	DefaultDataDir = ".herd"

	// DBFile is the SQLite database filename inside the data directory.
	DBFile = "herd.db"
	// WalletsFile is the wallet catalog filename inside the data directory.
	WalletsFile = "wallets.yaml"
	// ProxiesFile is the proxy catalog filename inside the data directory.
	ProxiesFile = "proxies.yaml"
)

// DBPath returns the SQLite database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// WalletsPath returns the wallet catalog path inside a data directory.
func WalletsPath(dataDir string) string {
	return filepath.Join(dataDir, WalletsFile)
}

// ProxiesPath returns the proxy catalog path inside a data directory.
func ProxiesPath(dataDir string) string {
	return filepath.Join(dataDir, ProxiesFile)
}
