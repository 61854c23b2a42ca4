// Command cfi parses, formats, orders, generates and resolves Canonical
// Fragment Identifiers from the command line.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/dgallion1/docanchor/internal/cfi"
	"github.com/dgallion1/docanchor/internal/chunker"
	"github.com/dgallion1/docanchor/internal/library"
	"github.com/dgallion1/docanchor/internal/parser"
)

// CLI defines the command-line interface for cfi.
type CLI struct {
	Parse     ParseCmd     `cmd:"" help:"Print the parsed model of a CFI as JSON"`
	Format    FormatCmd    `cmd:"" help:"Print the canonical form of a CFI"`
	Compare   CompareCmd   `cmd:"" help:"Compare two CFIs in reading order (-1, 0, 1)"`
	Sort      SortCmd      `cmd:"" help:"Sort CFIs in reading order"`
	XPath     XPathCmd     `cmd:"" name:"xpath" help:"Render the steps of a CFI as XPath"`
	Generate  GenerateCmd  `cmd:"" help:"Generate CFIs for positions in a document"`
	Resolve   ResolveCmd   `cmd:"" help:"Resolve a CFI against a document"`
	Locations LocationsCmd `cmd:"" help:"Print the location index of a document"`
}

// DocumentFlags locate a document file in its reading order.
type DocumentFlags struct {
	File        string `arg:"" help:"Document to load" type:"existingfile"`
	SpineIndex  int    `name:"spine-index" default:"0" help:"Position of the document in the reading order"`
	IDRef       string `name:"idref" help:"Identifier of the spine item"`
	IgnoreClass string `name:"ignore-class" default:"docanchor-hl" help:"Class marking ignorable markup"`
	Chars       int    `name:"chars" default:"150" help:"Characters per location"`
	Pdftotext   bool   `name:"pdftotext" default:"true" negatable:"" help:"Fall back to pdftotext for PDFs"`
}

func (f DocumentFlags) load() (*library.Entry, error) {
	p, err := parser.ForFile(f.File, parser.Options{PDFFallbackPdftotext: f.Pdftotext})
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(f.File)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	doc, err := p.Parse(fh, f.File)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.File, err)
	}

	lib := library.New(f.IgnoreClass, nil)
	base := cfi.ChapterBase(2, f.SpineIndex, f.IDRef)
	idx := chunker.Build(doc, base, chunker.Config{Chars: f.Chars, Ignore: lib.Ignore()})
	e := library.NewEntry(library.Meta{
		DocID:    f.File,
		Title:    doc.Title,
		Filename: f.File,
		Base:     base,
	}, doc, idx)
	lib.Put(e)
	return e, nil
}

func parseArg(s string) (cfi.CFI, error) {
	c := cfi.Parse(s)
	if !c.Valid() {
		return c, fmt.Errorf("invalid cfi: %s", s)
	}
	return c, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ParseCmd prints the model of a CFI.
type ParseCmd struct {
	CFI string `arg:"" help:"CFI to parse"`
}

func (c *ParseCmd) Run(w io.Writer) error {
	parsed, err := parseArg(c.CFI)
	if err != nil {
		return err
	}
	return printJSON(w, parsed)
}

// FormatCmd prints the canonical form of a CFI.
type FormatCmd struct {
	CFI string `arg:"" help:"CFI to format"`
}

func (c *FormatCmd) Run(w io.Writer) error {
	parsed, err := parseArg(c.CFI)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, parsed.String())
	return err
}

// CompareCmd compares two CFIs.
type CompareCmd struct {
	A string `arg:"" help:"First CFI"`
	B string `arg:"" help:"Second CFI"`
}

func (c *CompareCmd) Run(w io.Writer) error {
	a, err := parseArg(c.A)
	if err != nil {
		return err
	}
	b, err := parseArg(c.B)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, cfi.Compare(a, b))
	return err
}

// SortCmd orders CFIs.
type SortCmd struct {
	CFIs []string `arg:"" help:"CFIs to sort"`
}

func (c *SortCmd) Run(w io.Writer) error {
	parsed := make([]cfi.CFI, 0, len(c.CFIs))
	for _, s := range c.CFIs {
		p, err := parseArg(s)
		if err != nil {
			return err
		}
		parsed = append(parsed, p)
	}
	cfi.Sort(parsed)
	for _, p := range parsed {
		if _, err := fmt.Fprintln(w, p.String()); err != nil {
			return err
		}
	}
	return nil
}

// XPathCmd renders the path of a CFI (both endpoints for a range).
type XPathCmd struct {
	CFI string `arg:"" help:"CFI to render"`
}

func (c *XPathCmd) Run(w io.Writer) error {
	parsed, err := parseArg(c.CFI)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, cfi.StepsToXPath(parsed.Start().Steps))
	if parsed.IsRange() {
		fmt.Fprintln(w, cfi.StepsToXPath(parsed.End().Steps))
	}
	return nil
}

// GenerateCmd addresses an element id, an XPath selection or a text match.
type GenerateCmd struct {
	DocumentFlags `embed:""`

	ID         string `name:"id" xor:"selector" required:"" help:"Element identifier"`
	Text       string `name:"text" xor:"selector" required:"" help:"Text to search for"`
	XPath      string `name:"xpath" xor:"selector" required:"" help:"XPath selection"`
	Offset     *int   `name:"offset" help:"Character offset inside the addressed node"`
	Occurrence int    `name:"occurrence" default:"0" help:"Only the nth text match (1-based)"`
}

func (c *GenerateCmd) Run(w io.Writer) error {
	if c.Offset != nil && *c.Offset < 0 {
		return fmt.Errorf("offset must be non-negative, got %d", *c.Offset)
	}
	e, err := c.load()
	if err != nil {
		return err
	}
	var out []cfi.CFI
	switch {
	case c.ID != "":
		var one cfi.CFI
		one, err = e.AnchorID(c.ID, c.Offset)
		out = []cfi.CFI{one}
	case c.XPath != "":
		out, err = e.AnchorXPath(c.XPath, c.Offset)
	default:
		out, err = e.AnchorText(c.Text, c.Occurrence)
	}
	if err != nil {
		return err
	}
	for _, g := range out {
		fmt.Fprintln(w, g.String())
	}
	return nil
}

// ResolveCmd resolves a CFI against a document.
type ResolveCmd struct {
	DocumentFlags `embed:""`

	CFI string `arg:"" help:"CFI to resolve"`
}

func (c *ResolveCmd) Run(w io.Writer) error {
	e, err := c.load()
	if err != nil {
		return err
	}
	res, err := e.Resolve(c.CFI)
	if errors.Is(err, library.ErrUnresolved) {
		return fmt.Errorf("%s does not resolve in %s", c.CFI, c.File)
	}
	if err != nil {
		return err
	}
	return printJSON(w, res)
}

// LocationsCmd prints one location per line: index, CFI and excerpt.
type LocationsCmd struct {
	DocumentFlags `embed:""`

	JSON bool `name:"json" help:"Print JSON instead of tab-separated lines"`
}

func (c *LocationsCmd) Run(w io.Writer) error {
	e, err := c.load()
	if err != nil {
		return err
	}
	locs := e.Locations()
	if c.JSON {
		return printJSON(w, locs)
	}
	for _, l := range locs {
		fmt.Fprintf(w, "%d\t%s\t%s\n", l.Index, l.CFI, strings.ReplaceAll(l.Text, "\n", " "))
	}
	return nil
}

func newParser(cli *CLI, out io.Writer, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("cfi"),
		kong.Description("Canonical Fragment Identifier tool"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.BindTo(out, (*io.Writer)(nil)),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	var cli CLI
	k, err := newParser(&cli, os.Stdout)
	if err != nil {
		panic(err)
	}
	ctx, err := k.Parse(os.Args[1:])
	k.FatalIfErrorf(err)
	k.FatalIfErrorf(ctx.Run())
}
