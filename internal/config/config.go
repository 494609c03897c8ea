// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/fcanata061/mbuild/internal/issue"
	"github.com/fcanata061/mbuild/internal/pkgfile"
)

const (
	// AppName is the application name.
	AppName = "mbuild"
	// EnvPrefix is the prefix of every recognized environment variable.
	EnvPrefix = "MBUILD"
)

// Config is the resolved configuration of one mbuild invocation.
type Config struct {
	// Base is the root of all storage (sources, builds, packages, state).
	Base string `mapstructure:"base"`
	// Root is the target root filesystem for install and remove.
	Root string `mapstructure:"root"`
	// Prefix is the installation prefix baked into package metadata and
	// passed to configure scripts.
	Prefix string `mapstructure:"prefix"`
	// Jobs is the parallelism handed to make via -j.
	Jobs int `mapstructure:"jobs"`
	// PkgComp is the compression of produced package archives.
	PkgComp pkgfile.Compression `mapstructure:"-"`
	// Toolchain selects the compiler profile.
	Toolchain string `mapstructure:"toolchain"`
	// Strip enables the ELF strip pass over the stage tree.
	Strip bool `mapstructure:"strip"`
	// DownloadRetries is the maximum number of fetch attempts per source.
	DownloadRetries int `mapstructure:"download_retries"`
}

// Load resolves the configuration from defaults and MBUILD_* environment
// variables. Validation problems that have a safe fallback (an unknown
// compression) are logged as warnings, not errors, so a typo never aborts
// a long build at package time.
func Load(logger *log.Logger) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	cwd, err := os.Getwd()
	if err != nil {
		return nil, issue.Wrap(err, issue.KindIO, "resolve working directory")
	}

	v.SetDefault("base", filepath.Join(cwd, AppName))
	v.SetDefault("root", "/")
	v.SetDefault("prefix", "/usr")
	v.SetDefault("jobs", defaultJobs())
	v.SetDefault("pkg_comp", string(pkgfile.CompZstd))
	v.SetDefault("toolchain", ProfileSystem)
	v.SetDefault("strip", true)
	v.SetDefault("download_retries", 3)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, issue.Wrap(err, issue.KindUsage, "parse configuration")
	}

	comp, ok := pkgfile.ParseCompression(v.GetString("pkg_comp"))
	if !ok {
		logger.Warn("unknown package compression, falling back to none",
			"pkg_comp", v.GetString("pkg_comp"))
		comp = pkgfile.CompNone
	}
	cfg.PkgComp = comp

	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	if cfg.DownloadRetries < 1 {
		cfg.DownloadRetries = 1
	}

	abs, err := filepath.Abs(cfg.Base)
	if err != nil {
		return nil, issue.Wrap(err, issue.KindIO, "resolve base directory")
	}
	cfg.Base = abs

	return &cfg, nil
}

// Layout returns the directory layout derived from the base directory.
func (c *Config) Layout() Layout {
	return Layout{Base: c.Base}
}

// HostArch returns the machine tag used when a recipe does not pin one.
func HostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	default:
		return runtime.GOARCH
	}
}

func defaultJobs() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// String renders the configuration for verbose logging.
func (c *Config) String() string {
	return fmt.Sprintf("base=%s root=%s prefix=%s jobs=%d pkg_comp=%s toolchain=%s strip=%v retries=%d",
		c.Base, c.Root, c.Prefix, c.Jobs, c.PkgComp, c.Toolchain, c.Strip, c.DownloadRetries)
}
