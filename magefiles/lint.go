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

const (
	binLint  = "golangci-lint"
	binGofmt = "gofmt"
)

// Lint checks formatting, runs go vet and then golangci-lint.
func Lint() error {
	mg.SerialDeps(Fmt, Vet)
	return sh.RunV(binLint, "run", "./...")
}

// Fmt fails when any Go file is not gofmt-formatted.
func Fmt() error {
	out, err := sh.Output(binGofmt, "-l", "cmd", "internal", "pkg", "magefiles")
	if err != nil {
		return err
	}
	if out = strings.TrimSpace(out); out != "" {
		return fmt.Errorf("files need gofmt:\n%s", out)
	}
	return nil
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV(binGo, "vet", "./...")
}
