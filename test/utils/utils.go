/*
Copyright (c) 2025 The orc Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package utils

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/onsi/ginkgo/v2"
)

const (
	// BinaryPath is where BuildBinary places the orc binary, relative to the project root
	BinaryPath = "bin/orc"

	defaultKubectlBinary = "kubectl"
)

func warnError(err error) {
	if _, writeErr := fmt.Fprintf(ginkgo.GinkgoWriter, "warning: %v\n", err); writeErr != nil {
		return
	}
}

// Run executes the command from the project root and returns its combined output
func Run(cmd *exec.Cmd) (string, error) {
	dir, err := GetProjectDir()
	if err != nil {
		return "", fmt.Errorf("failed to get project directory: %w", err)
	}
	cmd.Dir = dir

	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	command := strings.Join(cmd.Args, " ")
	if _, writeErr := fmt.Fprintf(ginkgo.GinkgoWriter, "running: %q\n", command); writeErr != nil {
		return "", fmt.Errorf("failed to write command to GinkgoWriter: %w", writeErr)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%q failed with error %q: %w", command, string(output), err)
	}

	return string(output), nil
}

// BuildBinary compiles the orc command into BinaryPath
func BuildBinary() error {
	cmd := exec.CommandContext(context.Background(), "go", "build", "-o", BinaryPath, "./cmd")
	_, err := Run(cmd)
	return err
}

// RunOrc runs the built orc binary with args. Only stdout is returned, so
// JSON output can be decoded while logs go to stderr.
func RunOrc(args ...string) (string, error) {
	dir, err := GetProjectDir()
	if err != nil {
		return "", err
	}

	// #nosec G204 -- test utility running the locally built binary
	cmd := exec.CommandContext(context.Background(), filepath.Join(dir, BinaryPath), args...)
	cmd.Dir = dir
	cmd.Stderr = ginkgo.GinkgoWriter
	if _, writeErr := fmt.Fprintf(ginkgo.GinkgoWriter, "running: orc %s\n", strings.Join(args, " ")); writeErr != nil {
		return "", writeErr
	}

	output, err := cmd.Output()
	if err != nil {
		return string(output), fmt.Errorf("orc %s failed: %w", strings.Join(args, " "), err)
	}
	return string(output), nil
}

// Kubectl runs kubectl with args
func Kubectl(args ...string) (string, error) {
	kubectl := defaultKubectlBinary
	if v, ok := os.LookupEnv("KUBECTL"); ok {
		kubectl = v
	}
	// #nosec G204 -- test utility with controlled kubectl command
	cmd := exec.CommandContext(context.Background(), kubectl, args...)
	return Run(cmd)
}

// KubectlApply applies the manifest read from memory
func KubectlApply(manifest string) error {
	kubectl := defaultKubectlBinary
	if v, ok := os.LookupEnv("KUBECTL"); ok {
		kubectl = v
	}
	// #nosec G204 -- test utility with controlled kubectl command
	cmd := exec.CommandContext(context.Background(), kubectl, "apply", "-f", "-")
	cmd.Stdin = strings.NewReader(manifest)
	_, err := Run(cmd)
	return err
}

// KubectlDelete deletes resources and only warns on failure, for use in cleanup
func KubectlDelete(args ...string) {
	args = append([]string{"delete", "--ignore-not-found"}, args...)
	if _, err := Kubectl(args...); err != nil {
		warnError(err)
	}
}

// GetNonEmptyLines converts given command output string into individual objects
// according to line breakers, and ignores the empty elements in it.
func GetNonEmptyLines(output string) []string {
	var res []string
	for _, element := range strings.Split(output, "\n") {
		if element != "" {
			res = append(res, element)
		}
	}
	return res
}

// GetProjectDir will return the directory where the project is
func GetProjectDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return wd, fmt.Errorf("failed to get current working directory: %w", err)
	}
	wd = strings.ReplaceAll(wd, "/test/e2e", "")
	return wd, nil
}
