package client

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
)

// Payload is the single file sent to the server: either a regular file as-is
// or a ZIP archive of a directory or several paths.
type Payload struct {
	Filename string
	Size     int64
	Bundled  bool

	path string
	data []byte
}

// NewPayload prepares the upload for the given paths. name is used for the
// archive when several paths are bundled.
func NewPayload(paths []ParsedPath, name string) (*Payload, error) {
	tree, err := BuildFiletree(paths, name)
	if err != nil {
		return nil, err
	}

	if f, ok := tree.Root.(*File); ok {
		return &Payload{Filename: f.Name(), Size: f.Size(), path: f.Path()}, nil
	}

	data, err := tree.ToZipBytes()
	if err != nil {
		return nil, err
	}
	return &Payload{
		Filename: tree.Root.Name() + ".zip",
		Size:     int64(len(data)),
		Bundled:  true,
		data:     data,
	}, nil
}

// Open returns a reader over the payload bytes.
func (p *Payload) Open() (io.ReadCloser, error) {
	if p.data != nil {
		return io.NopCloser(bytes.NewReader(p.data)), nil
	}
	return os.Open(p.path)
}

func (ft *Filetree) ToZipBytes() ([]byte, error) {
	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	if err := compressNode(zipWriter, ft.Root, ""); err != nil {
		zipWriter.Close()
		return nil, err
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// compressNode writes node under basePath. Archive names always use forward
// slashes.
func compressNode(zw *zip.Writer, node Node, basePath string) error {
	archivePath := path.Join(basePath, node.Name())

	switch n := node.(type) {
	case *File:
		return addFileToZip(zw, n.Path(), archivePath)
	case *Dir:
		if len(n.Children()) == 0 {
			_, err := zw.Create(archivePath + "/")
			return err
		}
		for _, child := range n.Children() {
			if err := compressNode(zw, child, archivePath); err != nil {
				return err
			}
		}
	}
	return nil
}

func addFileToZip(zw *zip.Writer, srcPath, archivePath string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", srcPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create zip header: %w", err)
	}
	header.Name = archivePath
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}

	if _, err := io.Copy(writer, file); err != nil {
		return fmt.Errorf("failed to write file to zip: %w", err)
	}

	return nil
}
