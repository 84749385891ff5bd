package cassette

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/circleci/httpvcr/closer"
)

// DetectFormat classifies path without reading any interactions. An existing
// directory, or a path containing interactions.yaml, is a directory cassette.
// Everything else, including paths that do not exist yet, is a single file.
func DetectFormat(path string) Format {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return FormatDirectory
	}
	if _, err := os.Stat(filepath.Join(path, MetadataFile)); err == nil {
		return FormatDirectory
	}
	return FormatFile
}

// Exists reports whether a cassette of either format is stored at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads the cassette at path, detecting its format. A missing cassette is
// reported with an error that matches fs.ErrNotExist.
func Load(path string) (c *Cassette, err error) {
	if path == "" {
		return nil, storeError("load", path, ErrNoPath)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, storeError("load", path, err)
	}

	c = New(path, DetectFormat(path))
	switch c.Format {
	case FormatDirectory:
		c.Interactions, err = loadDirectory(path)
	default:
		c.Interactions, err = loadFile(path)
	}
	if err != nil {
		return nil, storeError("load", path, err)
	}
	return c, nil
}

// LoadOrNew loads the cassette at path, or returns an empty one in format f if
// nothing is stored there yet.
func LoadOrNew(path string, f Format) (*Cassette, error) {
	c, err := Load(path)
	switch {
	case err == nil:
		return c, nil
	case isNotExist(err):
		if f == FormatAuto {
			f = FormatFile
		}
		return New(path, f), nil
	}
	return nil, err
}

func isNotExist(err error) bool {
	return err != nil && errors.Is(err, fs.ErrNotExist)
}

// Save writes c to c.Path in c.Format. FormatAuto keeps the format of what is
// already stored there. The previous contents are only replaced once the new
// cassette has been completely written.
func Save(c *Cassette) error {
	if c == nil || c.Path == "" {
		return storeError("save", "", ErrNoPath)
	}
	f := c.Format
	if f == FormatAuto {
		f = DetectFormat(c.Path)
	}

	var err error
	switch f {
	case FormatDirectory:
		err = saveDirectory(c.Path, c.Interactions)
	default:
		err = saveFile(c.Path, c.Interactions)
	}
	return storeError("save", c.Path, err)
}

func loadFile(path string) ([]Interaction, error) {
	b, err := os.ReadFile(path) //#nosec:G304 // the cassette path is chosen by the caller
	if err != nil {
		return nil, err
	}
	return decode(b, nil)
}

func decode(b []byte, readFile func(string) ([]byte, error)) ([]Interaction, error) {
	var doc document
	if len(bytes.TrimSpace(b)) > 0 {
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if len(doc.Interactions) == 0 {
		return nil, nil
	}
	out := make([]Interaction, 0, len(doc.Interactions))
	for i, d := range doc.Interactions {
		in, err := resolve(i, d, readFile)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func encode(doc document) ([]byte, error) {
	if doc.Interactions == nil {
		doc.Interactions = []docInteraction{}
	}
	buf := &bytes.Buffer{}
	e := yaml.NewEncoder(buf)
	e.SetIndent(2)
	if err := e.Encode(doc); err != nil {
		return nil, err
	}
	if err := e.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func saveFile(path string, interactions []Interaction) (err error) {
	doc := document{Interactions: make([]docInteraction, 0, len(interactions))}
	for _, in := range interactions {
		doc.Interactions = append(doc.Interactions, inline(in))
	}
	b, err := encode(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	err = writeAndClose(tmp, b)
	if err != nil {
		return err
	}
	return swap(tmp.Name(), path)
}

func writeAndClose(f *os.File, b []byte) (err error) {
	defer closer.ErrorHandler(f, &err)
	_, err = f.Write(b)
	return err
}

// swap moves tmp into place at path. Anything already at path is moved aside
// first and put back if the final rename fails.
func swap(tmp, path string) error {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return os.Rename(tmp, path)
	}

	old := tmp + ".old"
	if err := os.Rename(path, old); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		if rerr := os.Rename(old, path); rerr != nil {
			return fmt.Errorf("%w (restoring previous cassette: %v)", err, rerr)
		}
		return err
	}
	return os.RemoveAll(old)
}
