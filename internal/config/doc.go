// Package config provides configuration structures and utilities for webgrab.
// It defines the crawl options (depth, page ceiling, politeness delay),
// output and report preferences, and per-site overrides loaded from the
// .webgrab YAML file.
package config
