package types

import "path/filepath"

type Project struct {
	Name string
}

// FuzzTarget is one harness binary found in the build output of a project.
type FuzzTarget struct {
	Project string
	Name    string
	Path    string
}

type CrashArtifact struct {
	Project string
	Fuzzer  string
	Path    string // where the fuzz engine wrote it
	Data    []byte
}

func (c CrashArtifact) Name() string {
	return filepath.Base(c.Path)
}
