// Package environment carries the deployment environment name through
// context so logging and configuration presets can adapt per install
// without plumbing an extra parameter everywhere.
package environment
