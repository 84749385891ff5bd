// Command vcr-inspect lists, queries, converts and scrubs cassettes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log" //nolint:depguard // non-o11y log is allowed for a top-level fatal
	"os"
	"strings"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/alecthomas/kong"

	"github.com/circleci/httpvcr/cassette"
	"github.com/circleci/httpvcr/filter"
	"github.com/circleci/httpvcr/internal/fieldpath"
	vcrkong "github.com/circleci/httpvcr/kong"
	vcrlog "github.com/circleci/httpvcr/log"
	"github.com/circleci/httpvcr/o11y"
)

type cli struct {
	Verbose    bool   `env:"VCR_VERBOSE" help:"Write trace events to stderr."`
	StatsdAddr string `env:"VCR_STATSD_ADDR" help:"Send metrics to this statsd address."`

	List    listCmd    `cmd:"" help:"List the interactions in a cassette."`
	Field   fieldCmd   `cmd:"" help:"Print the value at a field path, e.g. response.headers.Content-Type[0]."`
	Fields  fieldsCmd  `cmd:"" help:"List the field paths of an interaction."`
	Convert convertCmd `cmd:"" help:"Convert a cassette between the file and directory formats."`
	Scrub   scrubCmd   `cmd:"" help:"Remove credentials from a cassette in place."`
	Analyze analyzeCmd `cmd:"" help:"Report interactions that still carry credentials."`
	Form    formCmd    `cmd:"" help:"Report which fields of a url-encoded form would be scrubbed."`
}

type app struct {
	ctx context.Context
	out io.Writer
}

func (a *app) json(v interface{}) error {
	e := json.NewEncoder(a.out)
	e.SetIndent("", "  ")
	e.SetEscapeHTML(false)
	return e.Encode(v)
}

func main() {
	err := run(os.Args[1:], os.Getenv("VCR_SETTINGS"), os.Stdout, os.Stderr)
	if err != nil {
		log.Fatal("vcr-inspect: ", err)
	}
}

// run parses args and executes the chosen command. Flags with an env tag
// default to the values in the settings file, when one is given.
func run(args []string, settingsPath string, stdout, stderr io.Writer) (err error) {
	c := cli{}
	kctx, err := vcrkong.ParseCLIWithSettings(&c, args, settingsPath,
		kong.Name("vcr-inspect"),
		kong.Description("Inspect and maintain HTTP cassettes."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}

	ctx, cleanup, err := loadO11y(c, stderr)
	if err != nil {
		return err
	}
	defer cleanup(ctx)

	name := strings.Fields(kctx.Command())[0]
	ctx, span := o11y.StartSpan(ctx, "vcr-inspect: "+name)
	defer o11y.End(span, &err)

	return kctx.Run(&app{ctx: ctx, out: stdout})
}

func loadO11y(c cli, stderr io.Writer) (context.Context, func(context.Context), error) {
	cfg := vcrlog.Config{Writer: io.Discard}
	if c.Verbose {
		cfg.Writer = stderr
	}
	if c.StatsdAddr != "" {
		client, err := statsd.New(c.StatsdAddr, statsd.WithNamespace("vcr_inspect."))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create statsd client: %w", err)
		}
		cfg.Metrics = client
	}
	p := vcrlog.New(cfg)
	p.AddGlobalField("service", "vcr-inspect")
	ctx := o11y.WithProvider(context.Background(), p)
	return ctx, p.Close, nil
}

type listCmd struct {
	Cassette string `arg:"" help:"Cassette file or directory."`
}

type listEntry struct {
	Index  int    `json:"index"`
	Method string `json:"method"`
	URL    string `json:"url"`
	Status int    `json:"status"`
}

func (l *listCmd) Run(a *app) error {
	c, err := cassette.Load(l.Cassette)
	if err != nil {
		return err
	}
	entries := make([]listEntry, 0, c.Len())
	for i, in := range c.Interactions {
		entries = append(entries, listEntry{
			Index:  i,
			Method: in.Request.Method,
			URL:    in.Request.URL,
			Status: in.Response.Status,
		})
	}
	o11y.AddField(a.ctx, "interactions", c.Len())
	return a.json(struct {
		Total    int         `json:"total_interactions"`
		Requests []listEntry `json:"requests"`
	}{Total: c.Len(), Requests: entries})
}

type fieldCmd struct {
	Cassette string `arg:"" help:"Cassette file or directory."`
	Path     string `arg:"" help:"Dotted field path. Keys holding dots go quoted in brackets."`
	Index    int    `short:"i" default:"-1" help:"Only look at this interaction. By default every interaction with the field is shown."`
}

type fieldValue struct {
	Index int         `json:"index"`
	Value interface{} `json:"value"`
}

func (f *fieldCmd) Run(a *app) error {
	c, err := cassette.Load(f.Cassette)
	if err != nil {
		return err
	}
	if _, err := fieldpath.Parse(f.Path); err != nil {
		return err
	}

	if f.Index >= 0 {
		in, err := interaction(c, f.Index)
		if err != nil {
			return err
		}
		v, err := fieldpath.Lookup(fieldpath.Document(in), f.Path)
		if err != nil {
			return fmt.Errorf("interaction %d: %w", f.Index, err)
		}
		if s, ok := v.(string); ok {
			_, err = fmt.Fprintln(a.out, s)
			return err
		}
		return a.json(v)
	}

	values := []fieldValue{}
	for i, in := range c.Interactions {
		v, err := fieldpath.Lookup(fieldpath.Document(in), f.Path)
		if err != nil {
			continue
		}
		values = append(values, fieldValue{Index: i, Value: v})
	}
	if len(values) == 0 && c.Len() > 0 {
		return fmt.Errorf("%w: %q in any interaction", fieldpath.ErrNotFound, f.Path)
	}
	return a.json(values)
}

type fieldsCmd struct {
	Cassette string `arg:"" help:"Cassette file or directory."`
	Index    int    `short:"i" default:"0" help:"Interaction to describe."`
}

func (f *fieldsCmd) Run(a *app) error {
	c, err := cassette.Load(f.Cassette)
	if err != nil {
		return err
	}
	in, err := interaction(c, f.Index)
	if err != nil {
		return err
	}
	return a.json(struct {
		Index int      `json:"interaction_index"`
		Total int      `json:"total_interactions"`
		Paths []string `json:"field_paths"`
	}{Index: f.Index, Total: c.Len(), Paths: fieldpath.Paths(fieldpath.Document(in))})
}

func interaction(c *cassette.Cassette, idx int) (cassette.Interaction, error) {
	if idx < 0 || idx >= c.Len() {
		return cassette.Interaction{}, fmt.Errorf("interaction index %d out of range, the cassette has %d", idx, c.Len())
	}
	return c.Interactions[idx], nil
}

type convertCmd struct {
	Source      string `arg:"" help:"Cassette to read."`
	Destination string `arg:"" help:"Where to write the converted cassette."`
	Format      string `short:"f" env:"VCR_FORMAT" enum:"file,directory" default:"directory" help:"Format to write (file or directory)."`
}

func (cv *convertCmd) Run(a *app) error {
	f, err := cassette.ParseFormat(cv.Format)
	if err != nil {
		return err
	}
	c, err := cassette.Convert(cv.Source, cv.Destination, f)
	if err != nil {
		return err
	}
	o11y.Count(a.ctx, "converted", int64(c.Len()), "format:"+f.String())
	return a.json(struct {
		Success     bool   `json:"success"`
		Source      string `json:"source_path"`
		Destination string `json:"destination_path"`
		Format      string `json:"format"`
		Converted   int    `json:"interactions_converted"`
	}{Success: true, Source: cv.Source, Destination: cv.Destination, Format: f.String(), Converted: c.Len()})
}

type scrubCmd struct {
	Cassette    string `arg:"" help:"Cassette file or directory, rewritten in place."`
	Replacement string `env:"VCR_SCRUB_REPLACEMENT" default:"[FILTERED]" help:"Text that replaces credentials."`
}

func (s *scrubCmd) Run(a *app) error {
	c, err := filter.Rewrite(a.ctx, s.Cassette, filter.Sensitive(s.Replacement))
	if err != nil {
		return err
	}
	o11y.Count(a.ctx, "scrubbed", int64(c.Len()))
	return a.json(struct {
		Success  bool   `json:"success"`
		Path     string `json:"path"`
		Scrubbed int    `json:"interactions_scrubbed"`
	}{Success: true, Path: s.Cassette, Scrubbed: c.Len()})
}

type analyzeCmd struct {
	Cassette string `arg:"" help:"Cassette file or directory."`
}

func (an *analyzeCmd) Run(a *app) error {
	c, err := cassette.Load(an.Cassette)
	if err != nil {
		return err
	}
	return a.json(filter.Analyze(c))
}

type formCmd struct {
	Data string `arg:"" help:"A url-encoded form body."`
}

func (f *formCmd) Run(a *app) error {
	fa, err := filter.AnalyzeForm(f.Data)
	if err != nil {
		return err
	}
	return a.json(fa)
}
