// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Race runs every test with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "-count=1", "./...")
}

// Cover runs the tests with coverage and prints the per-function summary.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func=coverage.out")
}

// Pkg runs the tests of one package, e.g. mage test:pkg cache.
func (Test) Pkg(name string) error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if strings.HasSuffix(pkg, "/"+name) {
			return sh.RunV(binGo, "test", "-v", "-race", pkg)
		}
	}
	return fmt.Errorf("no package named %q", name)
}
