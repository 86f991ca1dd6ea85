// Package release turns loaded signing credentials into the signing plan of a
// release build: the release keystore when one is configured, otherwise the
// debug keystore or no signing at all. It also verifies plans and renders them
// as Android Gradle Plugin injected-signing arguments.
package release
