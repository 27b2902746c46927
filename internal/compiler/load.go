package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Spec file extensions understood by LoadFile.
var (
	CUEExtensions  = []string{".cue"}
	YAMLExtensions = []string{".yaml", ".yml", ".json"}
)

// IsSpecFile reports whether path has an extension LoadFile understands.
func IsSpecFile(path string) bool {
	return IsCUEFile(path) || isYAML(path)
}

// IsCUEFile reports whether path is a CUE source file.
func IsCUEFile(path string) bool {
	return hasExt(path, CUEExtensions)
}

func isYAML(path string) bool {
	return hasExt(path, YAMLExtensions)
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFile compiles a single spec file. CUE files are compiled on their
// own, without package imports; use cue/load for multi-file packages.
func LoadFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}

	switch {
	case IsCUEFile(path):
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		spec, err := CompileSpec(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return spec, nil
	case isYAML(path):
		spec, err := DecodeSpec(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return spec, nil
	default:
		return nil, fmt.Errorf("%s: unsupported spec file extension %q", path, filepath.Ext(path))
	}
}
