// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/fcanata061/mbuild/internal/issue"
)

// Builtin toolchain profile names.
const (
	ProfileSystem = "system"
	ProfileLLVM   = "llvm"
	ProfileMusl   = "musl"
)

// ToolchainFile is the optional per-base profile override file.
const ToolchainFile = "toolchains.toml"

// Toolchain is a set of compiler defaults. Every value is applied only when
// the corresponding environment variable is unset; user environment always
// wins.
type Toolchain struct {
	CC     string `toml:"cc"`
	CXX    string `toml:"cxx"`
	AR     string `toml:"ar"`
	Ranlib string `toml:"ranlib"`
}

var builtinToolchains = map[string]Toolchain{
	ProfileSystem: {CC: "gcc", CXX: "g++", AR: "ar", Ranlib: "ranlib"},
	ProfileLLVM:   {CC: "clang", CXX: "clang++", AR: "llvm-ar", Ranlib: "llvm-ranlib"},
	ProfileMusl:   {CC: "musl-gcc", CXX: "g++", AR: "ar", Ranlib: "ranlib"},
}

// toolchainOverrides is the shape of <base>/toolchains.toml:
//
//	[profiles.cross-arm]
//	cc     = "arm-linux-gnueabihf-gcc"
//	cxx    = "arm-linux-gnueabihf-g++"
//	ar     = "arm-linux-gnueabihf-ar"
//	ranlib = "arm-linux-gnueabihf-ranlib"
type toolchainOverrides struct {
	Profiles map[string]Toolchain `toml:"profiles"`
}

// ResolveToolchain looks the configured profile up among the builtins and
// the optional <base>/toolchains.toml overrides. Override entries shadow
// builtins of the same name.
func (c *Config) ResolveToolchain() (Toolchain, error) {
	profiles, err := loadToolchainOverrides(filepath.Join(c.Base, ToolchainFile))
	if err != nil {
		return Toolchain{}, err
	}

	if tc, ok := profiles[c.Toolchain]; ok {
		return tc, nil
	}
	if tc, ok := builtinToolchains[c.Toolchain]; ok {
		return tc, nil
	}

	return Toolchain{}, issue.NewContext(issue.KindUsage).
		WithOperation("select toolchain profile").
		WithResource(c.Toolchain).
		WithSuggestion("Builtin profiles are: system, llvm, musl").
		WithSuggestion("Custom profiles go in <base>/" + ToolchainFile + " under [profiles.<name>]").
		BuildError()
}

func loadToolchainOverrides(path string) (map[string]Toolchain, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, issue.Wrap(err, issue.KindIO, "read toolchain overrides")
	}

	var overrides toolchainOverrides
	if err := toml.Unmarshal(data, &overrides); err != nil {
		return nil, issue.NewContext(issue.KindUsage).
			WithOperation("parse toolchain overrides").
			WithResource(path).
			WithSuggestion("Profiles use TOML tables: [profiles.<name>] with cc, cxx, ar, ranlib keys").
			Wrap(err).
			BuildError()
	}
	return overrides.Profiles, nil
}

// Env merges the toolchain defaults into env for keys the user environment
// leaves unset.
func (tc Toolchain) Env(env map[string]string) {
	defaults := map[string]string{
		"CC":     tc.CC,
		"CXX":    tc.CXX,
		"AR":     tc.AR,
		"RANLIB": tc.Ranlib,
	}
	for key, value := range defaults {
		if value == "" {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			env[key] = os.Getenv(key)
			continue
		}
		env[key] = value
	}
}
