// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the stories project using Mage.
//
// Usage:
//
//	mage build          Compile the stories binary to bin/
//	mage test:all       Run every test
//	mage test:unit      Run tests with -short
//	mage test:cover     Run tests with a coverage profile
//	mage lint           Run go vet and golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install stories to GOPATH/bin
//	mage stats          Print Go line counts per package
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo       = "go"
	binaryName  = "stories"
	binaryDir   = "bin"
	cmdDir      = "./cmd/stories"
	versionFlag = "github.com/mesh-intelligence/stories/internal/cli.Version"
)

// Build compiles the stories binary to bin/, stamping the version from
// STORIES_VERSION or git describe.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := "-X " + versionFlag + "=" + version()
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	if err := os.Remove(coverProfile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

func version() string {
	if v := os.Getenv("STORIES_VERSION"); v != "" {
		return v
	}
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || strings.TrimSpace(out) == "" {
		return "dev"
	}
	return strings.TrimSpace(out)
}
