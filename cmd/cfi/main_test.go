package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

const testHTML = `<html><head><title>Chapter</title></head>
<body id="body01"><p id="para01">Hello world</p><p id="para02">Alpha beta gamma</p></body></html>`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	var out bytes.Buffer
	k, err := newParser(&cli, &out, kong.Exit(func(int) { t.Fatalf("unexpected exit for %v", args) }))
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	ctx, err := k.Parse(args)
	if err != nil {
		return "", err
	}
	err = ctx.Run()
	return out.String(), err
}

func writeChapter(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chapter.html")
	if err := os.WriteFile(path, []byte(testHTML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestFormat_Canonical(t *testing.T) {
	out, err := run(t, "format", "epubcfi(/6/4[chap01ref]!/4[body01]/10[para05]/3:10)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "epubcfi(/6/4[chap01ref]!/4[body01]/10[para05]/3:10)\n"; out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestParse_JSON(t *testing.T) {
	out, err := run(t, "parse", "epubcfi(/6/4!/4,/1:2,/1:5)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var model map[string]any
	if err := json.Unmarshal([]byte(out), &model); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out, err)
	}
	if _, ok := model["range"]; !ok {
		t.Fatalf("expected a range in %s", out)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := run(t, "parse", "not a cfi"); err == nil {
		t.Fatal("expected an error for invalid input")
	}
}

func TestCompareAndSort(t *testing.T) {
	out, err := run(t, "compare", "epubcfi(/6/2!/4/1:3)", "epubcfi(/6/4!/2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "-1" {
		t.Fatalf("expected -1, got %q", out)
	}

	out, err = run(t, "sort", "epubcfi(/6/4!/2)", "epubcfi(/6/2!/4/1:3)", "epubcfi(/6/2!/4/1:1)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "epubcfi(/6/2!/4/1:1)\nepubcfi(/6/2!/4/1:3)\nepubcfi(/6/4!/2)\n"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestXPath_Range(t *testing.T) {
	out, err := run(t, "xpath", "epubcfi(/6/4!/4[body01],/2/1:0,/4/1:3)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two paths, got %q", out)
	}
}

func TestGenerate_ByID(t *testing.T) {
	path := writeChapter(t)
	out, err := run(t, "generate", path, "--spine-index=1", "--idref=chap01ref", "--id=para01", "--offset=3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "epubcfi(/6/4[chap01ref]!/4[body01]/2[para01]/1:3)\n"; out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestGenerate_ByTextThenResolve(t *testing.T) {
	path := writeChapter(t)
	out, err := run(t, "generate", path, "--spine-index=1", "--idref=chap01ref", "--text=beta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.TrimSpace(out)
	if want := "epubcfi(/6/4[chap01ref]!/4[body01]/4[para02],/1:6,/1:10)"; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	out, err = run(t, "resolve", path, got, "--spine-index=1", "--idref=chap01ref")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var res struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out, err)
	}
	if res.Text != "beta" {
		t.Fatalf("expected text beta, got %q", res.Text)
	}
}

func TestGenerate_RejectsNegativeOffset(t *testing.T) {
	path := writeChapter(t)
	_, err := run(t, "generate", path, "--id=para01", "--offset=-2")
	if err == nil || !strings.Contains(err.Error(), "non-negative") {
		t.Fatalf("expected a non-negative offset error, got %v", err)
	}
}

func TestGenerate_RequiresSelector(t *testing.T) {
	path := writeChapter(t)
	if _, err := run(t, "generate", path); err == nil {
		t.Fatal("expected an error without a selector")
	}
}

func TestLocations_Lines(t *testing.T) {
	path := writeChapter(t)
	out, err := run(t, "locations", path, "--chars=5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected several locations, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "0\tepubcfi(/6/2!/4[body01]") {
		t.Fatalf("unexpected first location %q", lines[0])
	}
}
