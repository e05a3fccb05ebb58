/*
	Package catpub provides types, constants, and functions that have no other dependencies
	and can be used by all packages within catpub.  This includes leveled logging, spatial
	types shared by skeletons, landmarks and volumes, name selections and renaming, and the
	deterministic number formatting used by every plaintext file in an export.
*/
package catpub
