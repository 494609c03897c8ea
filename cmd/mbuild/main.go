// SPDX-License-Identifier: MPL-2.0

// Command mbuild is a minimalist source-to-binary package manager: it
// builds packages from declarative recipes and installs or removes them
// against a target root.
package main

func main() {
	Execute()
}
