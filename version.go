// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package ecmac

import (
	"github.com/maloquacious/semver"
)

var pkgVersion = semver.Version{
	Major: 0,
	Minor: 1,
	Patch: 0,
	Build: semver.Commit(),
}

// Version reports this module's version, in the same semver.Version shape
// the CLI's "version" subcommand prints.
func Version() semver.Version {
	return pkgVersion
}
