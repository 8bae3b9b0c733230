package shellcheck

import (
	"path"
	"slices"
	"strings"
)

// DefaultShell is used when the script names no known interpreter.
const DefaultShell = "bash"

// KnownShells are the dialects shellcheck understands.
var KnownShells = []string{"bash", "dash", "ksh", "sh"}

// Interpreter returns the shell named by the shebang of text when it is one
// of known, and fallback otherwise. Both direct paths (#!/bin/sh) and env
// lookups (#!/usr/bin/env -S bash -e) are recognised.
func Interpreter(text string, known []string, fallback string) string {
	if !strings.HasPrefix(text, "#!") {
		return fallback
	}
	first, _, _ := strings.Cut(text[2:], "\n")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return fallback
	}

	name := path.Base(fields[0])
	if name == "env" {
		name = ""
		for _, f := range fields[1:] {
			// flags and VAR=value assignments come before the command
			if strings.HasPrefix(f, "-") || strings.Contains(f, "=") {
				continue
			}
			name = path.Base(f)
			break
		}
	}
	if slices.Contains(known, name) {
		return name
	}
	return fallback
}
