// Package config loads petrodash configuration.
//
// Values come from, in order of precedence:
//
//  1. Environment variables prefixed PDASH_ (e.g. PDASH_SERVER_PORT)
//  2. A YAML file: $PDASH_CONFIG, petrodash.yaml or configs/petrodash.yaml
//  3. Defaults declared in struct tags
//
// Relative paths are anchored at the executable directory by ResolvePaths.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := config.ResolvePaths(cfg, "")
package config
