// Package client implements the operator side of the upload flow: choosing
// what to send, bundling it, and posting it to a running server.
package client

import (
	"fmt"
	"os"
	"path/filepath"
)

type ValidationError struct {
	Arg   string
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Cause)
}

type PathKind int

const (
	PathFile PathKind = iota
	PathDir
)

func (k PathKind) String() string {
	if k == PathDir {
		return "dir"
	}
	return "file"
}

type ParsedPath struct {
	FullPath string
	Kind     PathKind
}

// ParseArgs checks that every path exists and is a regular file or a
// directory.
func ParseArgs(args []string) ([]ParsedPath, error) {
	if len(args) == 0 {
		return nil, &ValidationError{Arg: "<paths>", Cause: "no files provided"}
	}

	var out []ParsedPath
	seen := make(map[string]bool)

	for _, raw := range args {
		p := filepath.Clean(raw)
		info, err := os.Stat(p)
		if err != nil {
			return nil, &ValidationError{Arg: raw, Cause: "not found or not accessible"}
		}

		var kind PathKind
		switch {
		case info.IsDir():
			kind = PathDir
		case info.Mode().IsRegular():
			kind = PathFile
		default:
			return nil, &ValidationError{Arg: raw, Cause: "not a regular file or directory"}
		}

		if seen[p] {
			return nil, &ValidationError{Arg: raw, Cause: "given more than once"}
		}
		seen[p] = true

		out = append(out, ParsedPath{FullPath: p, Kind: kind})
	}

	return out, nil
}
