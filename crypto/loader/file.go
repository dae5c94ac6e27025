package loader

import (
	"encoding/hex"
	"os"
	"strings"

	"golang.org/x/xerrors"
)

// keyPerm is the permission of a created key file. Only the current user can
// read it.
const keyPerm = 0400

// fileLoader is a loader that stores the keys in a file as hexadecimal text.
//
// - implements loader.Loader
type fileLoader struct {
	path string

	readFn  func(path string) ([]byte, error)
	writeFn func(path string, data []byte, perm os.FileMode) error
	statFn  func(path string) (os.FileInfo, error)
}

// NewFileLoader creates a new loader that uses the file at the given path.
func NewFileLoader(path string) Loader {
	return fileLoader{
		path:    path,
		readFn:  os.ReadFile,
		writeFn: os.WriteFile,
		statFn:  os.Stat,
	}
}

// LoadOrCreate implements loader.Loader. It either loads the key from the file
// if it exists, or it generates a new one and writes it in the file.
func (l fileLoader) LoadOrCreate(g Generator) ([]byte, error) {
	_, err := l.statFn(l.path)
	if err == nil {
		data, err := l.Load()
		if err != nil {
			return nil, xerrors.Errorf("failed to load file: %v", err)
		}

		return data, nil
	}

	if !os.IsNotExist(err) {
		return nil, xerrors.Errorf("while checking file: %v", err)
	}

	data, err := g.Generate()
	if err != nil {
		return nil, xerrors.Errorf("generator failed: %v", err)
	}

	err = l.writeFn(l.path, []byte(hex.EncodeToString(data)+"\n"), keyPerm)
	if err != nil {
		return nil, xerrors.Errorf("while writing file: %v", err)
	}

	return data, nil
}

// Load implements loader.Loader. It reads and decodes the key of the file.
func (l fileLoader) Load() ([]byte, error) {
	text, err := l.readFn(l.path)
	if err != nil {
		return nil, xerrors.Errorf("while reading file: %v", err)
	}

	data, err := hex.DecodeString(strings.TrimSpace(string(text)))
	if err != nil {
		return nil, xerrors.Errorf("malformed key file: %v", err)
	}

	return data, nil
}
