package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

type rejectedFile struct {
	Rejected []rejectedEntry `yaml:"rejected_urls"`
}

// rejectedEntry accepts either a bare URL or a full mapping.
type rejectedEntry struct {
	discovery.RejectedURL
}

func (r *rejectedEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.URL = node.Value
		return nil
	}
	return node.Decode(&r.RejectedURL)
}

// LoadRejected reads the rejected-URL history. A missing file yields none.
func LoadRejected(path string) ([]discovery.RejectedURL, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rejected urls %s: %w", path, err)
	}
	var file rejectedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode rejected urls %s: %w", path, err)
	}
	out := make([]discovery.RejectedURL, 0, len(file.Rejected))
	for _, r := range file.Rejected {
		if r.URL != "" {
			out = append(out, r.RejectedURL)
		}
	}
	return out, nil
}
