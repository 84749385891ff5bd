package cassette

// Convert loads the cassette at src in whatever format it is stored and saves
// it to dst in format f. FormatAuto keeps the source format.
func Convert(src, dst string, f Format) (*Cassette, error) {
	c, err := Load(src)
	if err != nil {
		return nil, err
	}
	if f == FormatAuto {
		f = c.Format
	}
	out := c.Clone()
	out.Path = dst
	out.Format = f
	if err := Save(out); err != nil {
		return nil, err
	}
	return out, nil
}
