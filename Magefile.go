//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Build builds the sqltune binary
func Build() error {
	mg.Deps(Lint, Test)

	fmt.Println("Building sqltune...")
	return sh.RunV("go", "build",
		"-o", "bin/sqltune",
		"-ldflags", "-s -w",
		".")
}

// Test runs unit tests with the race detector
func Test() error {
	fmt.Println("Running tests...")
	return sh.RunV("go", "test", "-v", "-race", "-coverprofile=coverage.out", "./...")
}

// Lint runs golangci-lint
func Lint() error {
	fmt.Println("Running linters...")
	return sh.RunV("golangci-lint", "run")
}

// LintFix runs linters with auto-fix
func LintFix() error {
	fmt.Println("Running linters with auto-fix...")
	return sh.RunV("golangci-lint", "run", "--fix")
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Cleaning...")
	os.RemoveAll("bin")
	os.Remove("coverage.out")
	return nil
}

// Check runs lint, tests and build
func Check() error {
	mg.Deps(Lint, Test, Build)
	fmt.Println("All checks passed")
	return nil
}
