package chunker

import (
	"slices"
	"testing"

	"github.com/dgallion1/docanchor/internal/cfi"
	"github.com/dgallion1/docanchor/internal/doctree"
)

var base = cfi.ChapterBase(2, 0, "c1")

func newDoc(blocks ...[2]string) (*doctree.Document, []*doctree.Node) {
	doc := doctree.NewDocument("T")
	var texts []*doctree.Node
	for _, b := range blocks {
		t := doctree.NewText(b[1])
		doc.Body().AppendChild(doctree.NewElement(b[0])).AppendChild(t)
		texts = append(texts, t)
	}
	return doc, texts
}

func TestBuild_CutsEveryNChars(t *testing.T) {
	doc, _ := newDoc([2]string{"p", "abcdefghij"}, [2]string{"p", "klmnopqrst"}, [2]string{"p", "uvwxy"})
	idx := Build(doc, base, Config{Chars: 8})

	want := []string{"abcdefgh", "ijklmnop", "qrstuvwx", "y"}
	if idx.Len() != len(want) {
		t.Fatalf("expected %d locations, got %d", len(want), idx.Len())
	}
	for i, w := range want {
		loc := idx.Locations[i]
		if loc.Text != w {
			t.Errorf("location %d: expected %q, got %q", i, w, loc.Text)
		}
		if loc.Index != i {
			t.Errorf("location %d: expected index %d, got %d", i, i, loc.Index)
		}
		rng, ok := cfi.ToRange(cfi.Parse(loc.CFI), doc.Root(), nil)
		if !ok {
			t.Fatalf("location %d: cfi %s did not resolve", i, loc.CFI)
		}
		if got := doctree.RangeText(doc.Root(), rng); got != w {
			t.Errorf("location %d: range text %q, want %q", i, got, w)
		}
	}
	if got := idx.Locations[0].CFI; got != "epubcfi(/6/2[c1]!/4/2,/1:0,/1:8)" {
		t.Errorf("unexpected first cfi %s", got)
	}
}

func TestBuild_SkipsWhitespaceText(t *testing.T) {
	doc, _ := newDoc([2]string{"p", "abc"})
	doc.Body().AppendChild(doctree.NewText("\n   \n"))
	doc.Body().AppendChild(doctree.NewElement("p")).AppendChild(doctree.NewText("def"))
	idx := Build(doc, base, Config{Chars: 100})
	if idx.Len() != 1 || idx.Locations[0].Text != "abcdef" {
		t.Fatalf("expected one location %q, got %+v", "abcdef", idx.Locations)
	}
}

func TestBuild_Breadcrumbs(t *testing.T) {
	doc, _ := newDoc(
		[2]string{"h1", "Part1"},
		[2]string{"p", "aaaaa"},
		[2]string{"h2", "Chap1"},
		[2]string{"p", "bbbbb"},
		[2]string{"h2", "Chap2"},
		[2]string{"p", "ccccc"},
		[2]string{"h1", "Part2"},
		[2]string{"p", "ddddd"},
	)
	idx := Build(doc, base, Config{Chars: 5})
	if idx.Len() != 8 {
		t.Fatalf("expected 8 locations, got %d", idx.Len())
	}
	cases := map[int][]string{
		1: {"Part1"},
		3: {"Part1", "Chap1"},
		5: {"Part1", "Chap2"},
		7: {"Part2"},
	}
	for i, want := range cases {
		if got := idx.Locations[i].Breadcrumb; !slices.Equal(got, want) {
			t.Errorf("location %d: expected breadcrumb %v, got %v", i, want, got)
		}
	}
}

func TestBuild_HighlightsDoNotShiftLocations(t *testing.T) {
	doc, texts := newDoc([2]string{"p", "abcdefghij"}, [2]string{"p", "klmnopqrst"})
	ignore := doctree.IgnoreClass("hl")
	before := Build(doc, base, Config{Chars: 8, Ignore: ignore})

	hl := doctree.NewElement("span", doctree.Attr{Name: "class", Value: "hl"})
	if err := doctree.WrapText(texts[0], 2, 6, hl); err != nil {
		t.Fatalf("wrap: %v", err)
	}
	after := Build(doc, base, Config{Chars: 8, Ignore: ignore})

	if before.Len() != after.Len() {
		t.Fatalf("expected %d locations, got %d", before.Len(), after.Len())
	}
	for i := range before.Locations {
		if before.Locations[i].CFI != after.Locations[i].CFI {
			t.Errorf("location %d: %s became %s", i, before.Locations[i].CFI, after.Locations[i].CFI)
		}
	}
}

func TestIndex_LocationOf(t *testing.T) {
	doc, texts := newDoc([2]string{"p", "abcdefghij"}, [2]string{"p", "klmnopqrst"}, [2]string{"p", "uvwxy"})
	idx := Build(doc, base, Config{Chars: 8})

	at := func(n *doctree.Node, off int) cfi.CFI {
		return cfi.FromPosition(n, &off, base, nil)
	}
	cases := []struct {
		name string
		c    cfi.CFI
		want int
	}{
		{"document start", at(texts[0], 0), 0},
		{"exact start", at(texts[0], 8), 1},
		{"inside", at(texts[1], 7), 2},
		{"last", at(texts[2], 5), 3},
		{"range uses start", cfi.Parse(idx.Locations[2].CFI), 2},
	}
	for _, tc := range cases {
		if got := idx.LocationOf(tc.c); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}

	if p := idx.Percentage(at(texts[2], 4)); p != 1 {
		t.Errorf("expected percentage 1, got %f", p)
	}
	if p := idx.Percentage(at(texts[0], 1)); p != 0 {
		t.Errorf("expected percentage 0, got %f", p)
	}
	if s, ok := idx.CFIAt(3); !ok || s != idx.Locations[3].CFI {
		t.Errorf("expected CFIAt(3) to return location 3")
	}
	if _, ok := idx.CFIAt(4); ok {
		t.Error("expected CFIAt past the end to fail")
	}
}

func TestIndex_Empty(t *testing.T) {
	idx := Build(doctree.NewDocument("Empty"), base, DefaultConfig())
	if idx.Len() != 0 {
		t.Fatalf("expected 0 locations, got %d", idx.Len())
	}
	if idx.Chars != DefaultChars {
		t.Errorf("expected default chars %d, got %d", DefaultChars, idx.Chars)
	}
	if got := idx.LocationOf(cfi.Parse("epubcfi(/6/2!/4/2/1:0)")); got != -1 {
		t.Errorf("expected -1 for empty index, got %d", got)
	}
	if _, ok := idx.CFIAt(0); ok {
		t.Error("expected CFIAt on empty index to fail")
	}
}

func TestBuild_ZeroConfigUsesDefaults(t *testing.T) {
	doc, _ := newDoc([2]string{"p", "short"})
	idx := Build(doc, base, Config{})
	if idx.Chars != DefaultChars || idx.Len() != 1 {
		t.Fatalf("expected defaults applied, got chars=%d len=%d", idx.Chars, idx.Len())
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Fatal("expected 0 tokens for empty text")
	}
	if n := EstimateTokens("x"); n != 1 {
		t.Fatalf("expected at least 1 token, got %d", n)
	}
	if n := EstimateTokens("one two three four five six"); n != 7 {
		t.Fatalf("expected 7 tokens, got %d", n)
	}
}

func TestIndex_LocationAtFollowsDocumentOrder(t *testing.T) {
	// <p><em>abcdefgh</em>ijklmnop</p>: the tail text is text step 0 and the
	// em is element step 0 of the same paragraph.
	doc := doctree.NewDocument("T")
	p := doc.Body().AppendChild(doctree.NewElement("p"))
	inner := p.AppendChild(doctree.NewElement("em")).AppendChild(doctree.NewText("abcdefgh"))
	tail := p.AppendChild(doctree.NewText("ijklmnop"))

	idx := Build(doc, base, Config{Chars: 8})
	if idx.Len() != 2 {
		t.Fatalf("expected 2 locations, got %d", idx.Len())
	}
	if d := idx.Locations[1].Start - idx.Locations[0].Start; d != 8 {
		t.Fatalf("expected locations 8 characters apart, got %d", d)
	}

	for _, tc := range []struct {
		node *doctree.Node
		off  int
		want int
	}{
		{tail, 2, 1},
		{tail, 0, 1},
		{inner, 3, 0},
	} {
		pos, ok := doctree.Position(doc.Root(), tc.node, tc.off)
		if !ok {
			t.Fatalf("position of %q:%d not found", tc.node.Data, tc.off)
		}
		if got := idx.LocationAt(pos); got != tc.want {
			t.Errorf("%q:%d: expected location %d, got %d", tc.node.Data, tc.off, tc.want, got)
		}
	}

	pos, _ := doctree.Position(doc.Root(), tail, 5)
	if pct := idx.PercentageAt(pos); pct != 1 {
		t.Errorf("expected percentage 1, got %f", pct)
	}
	if got := (&Index{}).LocationAt(0); got != -1 {
		t.Errorf("expected -1 for empty index, got %d", got)
	}
}
