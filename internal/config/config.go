// Package config resolves the CLI's permission-map search path (spec
// §6 Environment: ". then $SEPOLQ_DATA_DIR then a compiled-in
// installation prefix"), grounded on the viper-based layered config
// loading in pthm-melange's internal/cli/config.go.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// InstallPrefix is the compiled-in fallback search directory, the last
// entry in the search order when neither "." nor $SEPOLQ_DATA_DIR
// yields a match.
const InstallPrefix = "/usr/share/sepolq"

// EnvVar is the environment variable naming the data directory to
// search for the default permission map and system config files.
const EnvVar = "SEPOLQ_DATA_DIR"

// SearchPath returns the ordered directory search path of spec §6:
// ".", then $SEPOLQ_DATA_DIR if set, then InstallPrefix.
func SearchPath() []string {
	v := viper.New()
	v.SetEnvPrefix("SEPOLQ")
	v.AutomaticEnv()
	v.SetDefault("data_dir", "")

	path := []string{"."}
	if dir := v.GetString("data_dir"); dir != "" {
		path = append(path, dir)
	}
	return append(path, InstallPrefix)
}

// FindFile searches SearchPath() for name, returning the first
// existing match, or "" if none of the candidate directories contain
// it.
func FindFile(name string) string {
	for _, dir := range SearchPath() {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
