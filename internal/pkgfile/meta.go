// SPDX-License-Identifier: MPL-2.0

package pkgfile

import (
	"fmt"
	"strconv"
	"strings"
)

// ControlDir is the name of the control directory at the archive root.
const ControlDir = "CONTROL"

// ArchiveSuffix is the file extension of package archives.
const ArchiveSuffix = ".ppkg"

// Meta is the control metadata of a package archive, stored as
// newline-delimited key=value pairs in CONTROL/meta.
type Meta struct {
	Name    string
	Version string
	Release int
	Arch    string
	Prefix  string
}

// Id returns the canonical package identifier name-version-release.
func (m Meta) Id() string {
	return fmt.Sprintf("%s-%s-%d", m.Name, m.Version, m.Release)
}

// ArchiveName returns the package archive filename,
// <name>-<version>-<release>.<arch>.ppkg.
func (m Meta) ArchiveName() string {
	return fmt.Sprintf("%s.%s%s", m.Id(), m.Arch, ArchiveSuffix)
}

// Encode renders the meta file content. Key order is fixed so that two
// builds of the same recipe produce byte-identical control data.
func (m Meta) Encode() []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "name=%s\n", m.Name)
	fmt.Fprintf(&sb, "version=%s\n", m.Version)
	fmt.Fprintf(&sb, "release=%d\n", m.Release)
	fmt.Fprintf(&sb, "arch=%s\n", m.Arch)
	fmt.Fprintf(&sb, "prefix=%s\n", m.Prefix)
	return []byte(sb.String())
}

// ParseMeta parses meta file content. Unknown keys are ignored so older
// tools keep reading archives produced by newer ones.
func ParseMeta(data []byte) (Meta, error) {
	var m Meta
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return Meta{}, fmt.Errorf("meta line %d: missing '='", i+1)
		}
		switch key {
		case "name":
			m.Name = value
		case "version":
			m.Version = value
		case "release":
			rel, err := strconv.Atoi(value)
			if err != nil {
				return Meta{}, fmt.Errorf("meta line %d: invalid release %q", i+1, value)
			}
			m.Release = rel
		case "arch":
			m.Arch = value
		case "prefix":
			m.Prefix = value
		}
	}
	if m.Name == "" || m.Version == "" {
		return Meta{}, fmt.Errorf("meta is missing name or version")
	}
	if m.Release == 0 {
		m.Release = 1
	}
	return m, nil
}
