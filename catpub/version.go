package catpub

import "github.com/blang/semver"

// versionString is overridden at build time with
// -ldflags "-X github.com/janelia-flyem/catpub/catpub.versionString=..."
var versionString = "0.4.0"

// Version returns the semantic version of this program.
func Version() semver.Version {
	v, err := semver.ParseTolerant(versionString)
	if err != nil {
		Errorf("Unable to parse version %q: %v\n", versionString, err)
		pre, perr := semver.NewPRVersion("invalid")
		if perr != nil {
			return semver.Version{}
		}
		return semver.Version{Pre: []semver.PRVersion{pre}}
	}
	return v
}
