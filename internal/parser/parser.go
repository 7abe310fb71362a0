// Package parser reads the frontmatter, title, wikilinks and tags of a node's
// markdown root.
package parser

import (
	"bytes"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

const fence = "---"

// Frontmatter holds the keys a node header may carry.
type Frontmatter struct {
	Title   string   `yaml:"title,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// Markdown is a parsed node file.
type Markdown struct {
	Frontmatter Frontmatter
	Body        string
	Title       string
	Links       []string
	Tags        []string
}

// Parse splits data into frontmatter and body and collects title, links and
// tags. Malformed frontmatter is treated as body text.
func Parse(data []byte) *Markdown {
	fm, body := splitFrontmatter(data)
	return &Markdown{
		Frontmatter: fm,
		Body:        body,
		Title:       title(fm, body),
		Links:       links(body),
		Tags:        tags(fm, body),
	}
}

// RenderFrontmatter encodes fm as a fenced YAML header followed by a blank line.
func RenderFrontmatter(fm Frontmatter) ([]byte, error) {
	out, err := yaml.Marshal(fm)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	buf.Write(out)
	buf.WriteString(fence + "\n\n")
	return buf.Bytes(), nil
}

func splitFrontmatter(data []byte) (Frontmatter, string) {
	var fm Frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(fence)) {
		return fm, string(data)
	}
	rest := trimmed[len(fence):]
	end := bytes.Index(rest, []byte("\n"+fence))
	if end < 0 {
		return fm, string(data)
	}
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return Frontmatter{}, string(data)
	}
	body := strings.TrimLeft(string(rest[end+1+len(fence):]), "\n\r")
	return fm, body
}

// links returns wikilink targets in order of first appearance, with aliases
// and a trailing .md removed so they compare against node base names.
func links(body string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range wikilinkRe.FindAllStringSubmatch(body, -1) {
		target, _, _ := strings.Cut(m[1], "|")
		target, _, _ = strings.Cut(target, "#")
		target = strings.TrimSuffix(strings.TrimSpace(target), ".md")
		if target == "" {
			continue
		}
		target = path.Clean(target)
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

func tags(fm Frontmatter, body string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(t string) {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range fm.Tags {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// title prefers the frontmatter title, then the first H1.
func title(fm Frontmatter, body string) string {
	if fm.Title != "" {
		return fm.Title
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
