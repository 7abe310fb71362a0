package parser

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseFrontmatter(t *testing.T) {
	md := Parse([]byte("---\ntitle: My Node\ntags:\n  - graph\n  - go\n---\n\n# Heading\nSee [[other]] #inline\n"))
	if md.Title != "My Node" {
		t.Errorf("title = %q", md.Title)
	}
	if !reflect.DeepEqual(md.Tags, []string{"graph", "go", "inline"}) {
		t.Errorf("tags = %v", md.Tags)
	}
	if !reflect.DeepEqual(md.Links, []string{"other"}) {
		t.Errorf("links = %v", md.Links)
	}
	if !strings.HasPrefix(md.Body, "# Heading") {
		t.Errorf("body = %q", md.Body)
	}
}

func TestParseTitleFromHeading(t *testing.T) {
	md := Parse([]byte("# From Heading\nbody"))
	if md.Title != "From Heading" {
		t.Errorf("title = %q", md.Title)
	}
}

func TestParseInvalidFrontmatterIsBody(t *testing.T) {
	data := "---\ntitle: [unclosed\n---\nbody"
	md := Parse([]byte(data))
	if md.Body != data {
		t.Errorf("body = %q", md.Body)
	}
	if md.Frontmatter.Title != "" {
		t.Errorf("frontmatter should be empty")
	}
}

func TestParseUnclosedFrontmatter(t *testing.T) {
	data := "---\ntitle: x\nno closing"
	md := Parse([]byte(data))
	if md.Title != "" || md.Body != data {
		t.Errorf("md = %+v", md)
	}
}

func TestLinksNormalised(t *testing.T) {
	md := Parse([]byte("[[a.md]] [[a|Alias]] [[dir/b#section]] [[ ]] [[c]]"))
	want := []string{"a", "dir/b", "c"}
	if !reflect.DeepEqual(md.Links, want) {
		t.Errorf("links = %v, want %v", md.Links, want)
	}
}

func TestRenderFrontmatterRoundTrip(t *testing.T) {
	head, err := RenderFrontmatter(Frontmatter{Title: "a: tricky # title"})
	if err != nil {
		t.Fatalf("RenderFrontmatter: %v", err)
	}
	md := Parse(append(head, []byte("body\n")...))
	if md.Title != "a: tricky # title" {
		t.Errorf("title = %q", md.Title)
	}
	if md.Body != "body\n" {
		t.Errorf("body = %q", md.Body)
	}
}
