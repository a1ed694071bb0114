// Package dataset reads and writes the curated calls file and the rejected-URL
// history. Existing entries are carried through as YAML nodes so hand-edited
// fields survive a rewrite.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// BackupSuffix is appended to the calls path for the pre-write copy.
const BackupSuffix = ".backup"

// Header is written above the calls list on every rewrite.
const Header = `# Verified reviewer self-nomination calls.
# Entries are added by discovery with confirmed: false and promoted by a human.
#
# Order: NEWEST date first. Keep this ordering when editing.
#
# Fields:
#   conference: short name, must match data/conferences.yaml
#   year: conference year
#   role: Reviewer, External Reviewer, PC, SPC, AC, SAC, AEC or Emergency Reviewer
#   url: self-nomination page (primary key)
#   label: Main, Workshop, Industry or Shadow/Junior
#   date: publication or opening date of the page (YYYY-MM-DD)
#   confirmed: true once verified by a human
#   round: optional round for multi-round conferences

`

const callsKey = "calls"

// Calls is the in-memory calls file.
type Calls struct {
	path    string
	root    *yaml.Node
	entries []*yaml.Node
}

type callEntry struct {
	discovery.Candidate `yaml:",inline"`
	URLs                []struct {
		URL string `yaml:"url"`
	} `yaml:"urls"`
}

// LoadCalls reads path. A missing file yields an empty dataset.
func LoadCalls(path string) (*Calls, error) {
	c := &Calls{path: path}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read calls %s: %w", path, err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("decode calls %s: %w", path, err)
	}
	if len(root.Content) == 0 {
		return c, nil
	}
	body := root.Content[0]
	if body.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode calls %s: top level must be a mapping", path)
	}
	c.root = &root
	if seq := mappingValue(body, callsKey); seq != nil {
		if seq.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("decode calls %s: %s must be a list", path, callsKey)
		}
		c.entries = append(c.entries, seq.Content...)
	}
	return c, nil
}

// Path returns the file the dataset was loaded from.
func (c *Calls) Path() string { return c.path }

// Len returns the number of entries.
func (c *Calls) Len() int { return len(c.entries) }

// Candidates decodes every entry. Entries listing several `urls` expand to one
// candidate per URL so each is visible to dedup.
func (c *Calls) Candidates() ([]discovery.Candidate, error) {
	out := make([]discovery.Candidate, 0, len(c.entries))
	for _, node := range c.entries {
		var e callEntry
		if err := node.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode call at line %d: %w", node.Line, err)
		}
		if len(e.URLs) == 0 {
			out = append(out, e.Candidate)
			continue
		}
		for _, u := range e.URLs {
			cand := e.Candidate
			cand.URL = u.URL
			out = append(out, cand)
		}
	}
	return out, nil
}

// Add prepends candidates ahead of the existing entries.
func (c *Calls) Add(cands []discovery.Candidate) error {
	added := make([]*yaml.Node, 0, len(cands))
	for _, cand := range cands {
		var node yaml.Node
		if err := node.Encode(cand); err != nil {
			return fmt.Errorf("encode candidate %s: %w", cand.URL, err)
		}
		added = append(added, &node)
	}
	c.entries = append(added, c.entries...)
	return nil
}

// Write backs up the current file, orders entries newest date first (undated
// last, otherwise stable) and rewrites the file with Header.
func (c *Calls) Write() error {
	if err := backup(c.path); err != nil {
		return err
	}
	sortByDateDesc(c.entries)

	root := c.root
	if root == nil {
		root = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
		c.root = root
	}
	root.HeadComment = ""
	body := root.Content[0]
	body.HeadComment = ""
	if len(body.Content) > 0 {
		body.Content[0].HeadComment = ""
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Content: c.entries}
	setMappingValue(body, callsKey, seq)

	var buf bytes.Buffer
	buf.WriteString(Header)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode calls: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode calls: %w", err)
	}
	if err := os.WriteFile(c.path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // dataset is public
		return fmt.Errorf("write calls %s: %w", c.path, err)
	}
	return nil
}

func backup(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("backup %s: %w", path, err)
	}
	if err := os.WriteFile(path+BackupSuffix, raw, 0o644); err != nil { //nolint:gosec // dataset is public
		return fmt.Errorf("backup %s: %w", path, err)
	}
	return nil
}

func sortByDateDesc(entries []*yaml.Node) {
	dates := make(map[*yaml.Node]string, len(entries))
	for _, n := range entries {
		if v := mappingValue(n, "date"); v != nil && v.Kind == yaml.ScalarNode && v.ShortTag() != "!!null" {
			dates[n] = v.Value
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := dates[entries[i]], dates[entries[j]]
		if di == "" || dj == "" {
			return di != "" && dj == ""
		}
		return di > dj
	})
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setMappingValue(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
}
