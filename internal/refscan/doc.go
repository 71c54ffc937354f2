// Package refscan statically extracts cross-module references from module
// script sources, without executing them. The extraction strategy is
// pluggable behind the Extractor interface; the shipped implementation
// parses Lua and collects require() calls. Resolution of raw references
// against the discovered module set is language-neutral and lives here too.
package refscan
