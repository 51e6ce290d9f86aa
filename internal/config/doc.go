// Package config provides configuration structures and loaders for newscrawl.
// It covers the crawl settings (edition, search term, timeouts), the storage
// backend, the node key file and report output, and reads the optional
// .newscrawl YAML file and cookie exports.
package config
