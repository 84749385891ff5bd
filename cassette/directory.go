package cassette

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// writeFile is replaced in tests to simulate a failing disk.
var writeFile = os.WriteFile

// bodyFile names the file holding one body of the interaction at 0-based idx.
func bodyFile(kind string, idx int, b []byte) string {
	ext := "txt"
	if !isText(b) {
		ext = "b64"
	}
	return fmt.Sprintf("%s_%03d.%s", kind, idx+1, ext)
}

type pendingBody struct {
	name string
	data []byte
}

func saveDirectory(path string, interactions []Interaction) (err error) {
	doc := document{Interactions: make([]docInteraction, 0, len(interactions))}
	var bodies []pendingBody
	for i, in := range interactions {
		d := docInteraction{
			Request: docRequest{
				Method:  in.Request.Method,
				URL:     in.Request.URL,
				Headers: toDocHeaders(in.Request.Headers),
				Version: in.Request.Version,
			},
			Response: docResponse{
				Status:  in.Response.Status,
				Headers: toDocHeaders(in.Response.Headers),
				Version: in.Response.Version,
			},
		}
		if len(in.Request.Body) > 0 {
			d.Request.BodyFile = bodyFile("req", i, in.Request.Body)
			bodies = append(bodies, pendingBody{name: d.Request.BodyFile, data: in.Request.Body})
		}
		if len(in.Response.Body) > 0 {
			d.Response.BodyFile = bodyFile("resp", i, in.Response.Body)
			bodies = append(bodies, pendingBody{name: d.Response.BodyFile, data: in.Response.Body})
		}
		doc.Interactions = append(doc.Interactions, d)
	}
	meta, err := encode(doc)
	if err != nil {
		return err
	}

	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(tmp)
		}
	}()

	bodiesDir := filepath.Join(tmp, BodiesDir)
	if err := os.Mkdir(bodiesDir, 0o750); err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(8)
	for _, b := range bodies {
		b := b
		g.Go(func() error {
			data := b.data
			if strings.HasSuffix(b.name, ".b64") {
				data = []byte(encodeBase64(data))
			}
			return writeFile(filepath.Join(bodiesDir, b.name), data, 0o600)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(tmp, MetadataFile), meta, 0o600); err != nil {
		return err
	}
	return swap(tmp, path)
}

func loadDirectory(path string) ([]Interaction, error) {
	b, err := os.ReadFile(filepath.Join(path, MetadataFile)) //#nosec:G304 // the cassette path is chosen by the caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, malformed("directory has no %s", MetadataFile)
		}
		return nil, err
	}
	bodies := filepath.Join(path, BodiesDir)
	return decode(b, func(name string) ([]byte, error) {
		return readBody(bodies, name)
	})
}

func readBody(dir, name string) ([]byte, error) {
	if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, malformed("invalid body_file %q", name)
	}
	b, err := os.ReadFile(filepath.Join(dir, name)) //#nosec:G304 // name is a plain file name inside the cassette
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingBody, name)
		}
		return nil, err
	}
	if strings.HasSuffix(name, ".b64") {
		return decodeBase64(string(b))
	}
	return bodyBytes(b), nil
}
