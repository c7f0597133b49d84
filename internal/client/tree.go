package client

import (
	"fmt"
	"os"
	"path/filepath"
)

type Node interface {
	Path() string
	Name() string
}

type File struct {
	path string
	name string
	size int64
}

type Dir struct {
	path     string
	name     string
	children []Node
}

func (f *File) Path() string { return f.path }
func (f *File) Name() string { return f.name }
func (f *File) Size() int64  { return f.size }

func (d *Dir) Path() string     { return d.path }
func (d *Dir) Name() string     { return d.name }
func (d *Dir) Children() []Node { return d.children }

// Filetree is what gets uploaded. Several top-level paths are gathered under
// a virtual root directory.
type Filetree struct {
	Root Node
}

// BuildFiletree walks the parsed paths. rootName names the virtual root used
// when more than one path is given.
func BuildFiletree(paths []ParsedPath, rootName string) (*Filetree, error) {
	var rootNodes []Node

	for _, parsedPath := range paths {
		if parsedPath.Kind == PathDir {
			dirNode, err := buildDirTree(parsedPath.FullPath)
			if err != nil {
				return nil, err
			}
			rootNodes = append(rootNodes, dirNode)
		} else {
			fileNode, err := newFile(parsedPath.FullPath, filepath.Base(parsedPath.FullPath))
			if err != nil {
				return nil, err
			}
			rootNodes = append(rootNodes, fileNode)
		}
	}

	if len(rootNodes) == 0 {
		return nil, fmt.Errorf("no valid paths provided")
	}

	if len(rootNodes) == 1 {
		return &Filetree{Root: rootNodes[0]}, nil
	}
	return &Filetree{Root: &Dir{path: rootName, name: rootName, children: rootNodes}}, nil
}

func newFile(path, name string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, name: name, size: info.Size()}, nil
}

func buildDirTree(dirPath string) (*Dir, error) {
	dir := &Dir{
		path:     dirPath,
		name:     filepath.Base(dirPath),
		children: []Node{},
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		childPath := filepath.Join(dirPath, entry.Name())

		switch {
		case entry.IsDir():
			childDir, err := buildDirTree(childPath)
			if err != nil {
				return nil, err
			}
			dir.children = append(dir.children, childDir)
		case entry.Type().IsRegular():
			childFile, err := newFile(childPath, entry.Name())
			if err != nil {
				return nil, err
			}
			dir.children = append(dir.children, childFile)
		}
		// Symlinks and special files are skipped.
	}

	return dir, nil
}

// Files returns every file in the tree, depth first.
func (ft *Filetree) Files() []*File {
	var out []*File
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *File:
			out = append(out, v)
		case *Dir:
			for _, child := range v.children {
				walk(child)
			}
		}
	}
	walk(ft.Root)
	return out
}

// UncompressedSize is the total size of all files in the tree.
func (ft *Filetree) UncompressedSize() int64 {
	var total int64
	for _, f := range ft.Files() {
		total += f.size
	}
	return total
}
