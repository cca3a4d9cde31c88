// Package note reads and rewrites the YAML frontmatter of markdown notes.
//
// Notes are the source of truth for tag assignments. Frontmatter editing is
// conservative: unknown keys, key order, and the note body pass through
// untouched, and malformed frontmatter is treated as absent rather than as
// an error.
package note

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/tagvault/internal/errors"
)

// CurrentAgentVersion marks notes whose tags were produced by the current
// tagging logic. Bump on meaningful changes so stale notes get re-tagged.
const CurrentAgentVersion = "1.2"

const frontmatterDelim = "---"

// Frontmatter key names.
const (
	keyID           = "id"
	keyTags         = "tags"
	keyAgentVersion = "tagging-agent-version"
)

// Note is a markdown note with parsed frontmatter.
type Note struct {
	Path string
	ID   string

	// Tags as listed in frontmatter, in file order.
	Tags []string

	// AgentVersion is the recorded tagging-agent-version, empty when the
	// note was never tagged.
	AgentVersion string

	body        []byte
	mapping     *yaml.Node // frontmatter mapping node, never nil after Read
	generatedID bool
}

// Read loads the note at path. A note without frontmatter, or with
// frontmatter that fails to parse, yields a note with empty tags and an ID
// derived from the file name.
func Read(path string) (*Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeNoteNotFound, "note not found", err).
				WithDetail("path", path)
		}
		return nil, errors.New(errors.ErrCodeNoteWrite, "failed to read note", err).
			WithDetail("path", path)
	}

	n := &Note{Path: path}
	fmBlock, body := splitFrontmatter(data)
	n.body = body

	n.mapping = parseMapping(fmBlock)
	if n.mapping == nil {
		// Malformed or absent frontmatter: start fresh, keep full content
		n.mapping = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		n.body = data
	}

	n.ID = mappingString(n.mapping, keyID)
	if n.ID == "" {
		n.ID = SlugFromPath(path)
		n.generatedID = true
	}
	n.Tags = mappingStrings(n.mapping, keyTags)
	n.AgentVersion = mappingString(n.mapping, keyAgentVersion)

	return n, nil
}

// SlugFromPath derives a note ID from the file name stem.
func SlugFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.ToLower(strings.ReplaceAll(stem, " ", "-"))
}

// Body returns the note content below the frontmatter.
func (n *Note) Body() string {
	return string(n.body)
}

// CurrentFor reports whether the note's recorded agent version matches
// version, meaning tagging can be skipped.
func (n *Note) CurrentFor(version string) bool {
	return n.AgentVersion != "" && n.AgentVersion == version
}

// SetTags replaces the note's tags in memory. Pass a non-empty agentVersion
// to record it alongside; it is recorded only when tags is non-empty.
func (n *Note) SetTags(tags []string, agentVersion string) {
	n.Tags = append([]string(nil), tags...)
	setMappingStrings(n.mapping, keyTags, tags)

	if n.generatedID {
		setMappingString(n.mapping, keyID, n.ID)
		n.generatedID = false
	}
	if agentVersion != "" && len(tags) > 0 {
		n.AgentVersion = agentVersion
		setMappingString(n.mapping, keyAgentVersion, agentVersion)
	}
}

// Write rewrites the note file with the current frontmatter and the
// original body, atomically via temp file and rename.
func (n *Note) Write() error {
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n.mapping); err != nil {
		return errors.New(errors.ErrCodeNoteWrite, "failed to serialize frontmatter", err).
			WithDetail("path", n.Path)
	}
	if err := enc.Close(); err != nil {
		return errors.New(errors.ErrCodeNoteWrite, "failed to serialize frontmatter", err).
			WithDetail("path", n.Path)
	}

	buf.WriteString(frontmatterDelim + "\n")
	buf.Write(n.body)

	tmpPath := n.Path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return errors.New(errors.ErrCodeNoteWrite, "failed to write note", err).
			WithDetail("path", n.Path)
	}
	if err := os.Rename(tmpPath, n.Path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.New(errors.ErrCodeNoteWrite, "failed to replace note", err).
			WithDetail("path", n.Path)
	}
	return nil
}

// splitFrontmatter separates the leading YAML block (between --- delimiters)
// from the body. Without an opening or closing delimiter everything is body.
func splitFrontmatter(data []byte) (frontmatter, body []byte) {
	trimmed := bytes.TrimLeft(data, "\r\n")
	if !bytes.HasPrefix(trimmed, []byte(frontmatterDelim)) {
		return nil, data
	}

	rest := trimmed[len(frontmatterDelim):]
	idx := bytes.Index(rest, []byte("\n"+frontmatterDelim))
	if idx < 0 {
		return nil, data
	}

	block := rest[:idx]
	after := rest[idx+1+len(frontmatterDelim):]
	return block, bytes.TrimLeft(after, "\r\n")
}

// parseMapping decodes a YAML block into its mapping node, returning nil
// for empty, malformed, or non-mapping content.
func parseMapping(block []byte) *yaml.Node {
	if len(bytes.TrimSpace(block)) == 0 {
		return nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	return root
}

// mappingValue returns the value node for key, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func mappingString(m *yaml.Node, key string) string {
	v := mappingValue(m, key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return ""
	}
	return strings.TrimSpace(v.Value)
}

// mappingStrings reads a key that may be a sequence or a single scalar.
func mappingStrings(m *yaml.Node, key string) []string {
	v := mappingValue(m, key)
	if v == nil {
		return nil
	}
	switch v.Kind {
	case yaml.SequenceNode:
		out := make([]string, 0, len(v.Content))
		for _, item := range v.Content {
			if item.Kind == yaml.ScalarNode {
				if s := strings.TrimSpace(item.Value); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	case yaml.ScalarNode:
		if s := strings.TrimSpace(v.Value); s != "" {
			return []string{s}
		}
	}
	return nil
}

// setMappingString sets key to a scalar value, preserving position for
// existing keys and appending new ones.
func setMappingString(m *yaml.Node, key, value string) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	setMappingNode(m, key, node)
}

func setMappingStrings(m *yaml.Node, key string, values []string) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range values {
		seq.Content = append(seq.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
	}
	setMappingNode(m, key, seq)
}

func setMappingNode(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
}

// String implements fmt.Stringer for log output.
func (n *Note) String() string {
	return fmt.Sprintf("%s (%d tags)", n.ID, len(n.Tags))
}
