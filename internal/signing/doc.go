// Package signing reads release-signing credentials from an optional Java
// properties file (usually android/key.properties). A missing file or a blank
// storeFile entry yields empty credentials so release builds degrade to the
// configured fallback instead of failing.
package signing
