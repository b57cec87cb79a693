// Package config provides configuration loading for the 311 pipeline.
//
// Configuration is assembled from three layers, in increasing precedence:
// built-in defaults, an optional config.yaml file, and NYC311_-prefixed
// environment variables. The package also owns the Paths layout shared by
// every binary: raw downloads under data/raw, cleaned datasets under
// data/cleaned, and logs under logs/, all resolved relative to the
// executable directory.
package config
