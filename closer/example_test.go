package closer_test

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/circleci/httpvcr/closer"
)

func ExampleErrorHandler() {
	dir, err := os.MkdirTemp("", "closer")
	if err != nil {
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "interactions.yaml")
	if err := os.WriteFile(path, []byte("interactions: []\n"), 0o600); err != nil {
		os.Exit(1)
	}

	output, err := read(path)
	if err != nil {
		os.Exit(1)
	}
	fmt.Print(output)

	// output: interactions: []
}

func read(path string) (_ string, err error) {
	//#nosec:G304 // this is a test
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer closer.ErrorHandler(f, &err)

	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
