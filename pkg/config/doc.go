// Package config loads environment-based configuration structs using
// caarlos0/env field tags, optionally seeded from a .env file. Each
// configuration type is parsed once per process and cached so packages can
// load their own config independently without double-parsing.
package config
