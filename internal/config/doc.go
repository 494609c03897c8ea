// SPDX-License-Identifier: MPL-2.0

// Package config resolves mbuild's configuration and directory layout.
//
// Every knob comes from the environment (MBUILD_* variables) with Viper
// providing the defaults; there is no config file. A single base directory
// determines every derived path, created lazily by Layout.Ensure. Toolchain
// profiles supply compiler defaults that user environment variables always
// override.
package config
