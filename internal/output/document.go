// Package output serializes final entry sets into rule-provider documents.
package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is one category's rendered rule set.
type Document struct {
	Name      string
	Generator string
	Updated   time.Time
	Entries   []string
}

// Render writes the header comments followed by a payload list with every
// entry single-quoted. Entries are written in the given order.
func Render(w io.Writer, d Document) error {
	header := fmt.Sprintf("# NAME: %s\n# AUTHOR: %s\n# UPDATED: %s\n# TOTAL: %d\n",
		d.Name, d.Generator, d.Updated.UTC().Format(time.RFC3339), len(d.Entries))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, e := range d.Entries {
		seq.Content = append(seq.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Style: yaml.SingleQuotedStyle,
			Value: e,
		})
	}
	root := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "payload"},
			seq,
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return enc.Close()
}

// Marshal renders d into memory.
func Marshal(d Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Entries parses the payload list back out of a rendered document.
func Entries(data []byte) ([]string, error) {
	var doc struct {
		Payload []string `yaml:"payload"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Payload, nil
}

// WriteFile atomically replaces path with data via a temp file and rename.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
