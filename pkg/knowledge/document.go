package knowledge

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// Document is one knowledge base article.
type Document struct {
	ID      string
	Source  string
	Title   string
	Tags    []string
	Content string
}

type frontMatter struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// LoadDir reads every *.md file in dir, sorted by file name.
func LoadDir(dir string) ([]Document, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("knowledge: glob %s: %w", dir, err)
	}
	sort.Strings(paths)

	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("knowledge: read %s: %w", path, err)
		}
		doc, err := ParseDocument(filepath.Base(path), raw)
		if err != nil {
			return nil, err
		}
		if doc.Content == "" {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ParseDocument splits optional YAML front matter from a markdown body.
func ParseDocument(source string, raw []byte) (Document, error) {
	doc := Document{
		ID:     strings.TrimSuffix(source, filepath.Ext(source)),
		Source: source,
	}

	body := bytes.TrimPrefix(raw, []byte("\ufeff"))
	if meta, rest, ok := splitFrontMatter(body); ok {
		var fm frontMatter
		if err := yaml.Unmarshal(meta, &fm); err != nil {
			return Document{}, fmt.Errorf("knowledge: front matter of %s: %w", source, err)
		}
		doc.Title = strings.TrimSpace(fm.Title)
		doc.Tags = fm.Tags
		body = rest
	}

	doc.Content = strings.TrimSpace(string(body))
	return doc, nil
}

func splitFrontMatter(raw []byte) (meta []byte, rest []byte, ok bool) {
	text := string(raw)
	if !strings.HasPrefix(text, frontMatterDelim+"\n") && !strings.HasPrefix(text, frontMatterDelim+"\r\n") {
		return nil, raw, false
	}
	firstNL := strings.Index(text, "\n")
	remainder := text[firstNL+1:]

	lines := strings.SplitAfter(remainder, "\n")
	offset := 0
	for _, line := range lines {
		if strings.TrimRight(line, "\r\n") == frontMatterDelim {
			return []byte(remainder[:offset]), []byte(remainder[offset+len(line):]), true
		}
		offset += len(line)
	}
	return nil, raw, false
}

// EmbeddingText is the text embedded and searched for a document.
func (d Document) EmbeddingText() string {
	if d.Title == "" {
		return d.Content
	}
	return d.Title + "\n\n" + d.Content
}
