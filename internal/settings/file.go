package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	domain "github.com/donaldgifford/opay/pkg/types"
)

// FileStore keeps the settings in a YAML file under the "opay.settings"
// key. Other top-level keys in the file are left as they are.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store for the YAML file at path. The file does
// not need to exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the settings. A missing file or key loads as empty
// credentials.
func (s *FileStore) Load(_ context.Context) (*domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return nil, err
	}

	creds := &domain.Credentials{}
	if node := lookup(doc.Content[0], domain.SettingsName); node != nil {
		if err := node.Decode(creds); err != nil {
			return nil, fmt.Errorf("parsing settings file: %w", err)
		}
	}
	return creds, nil
}

// Save validates the settings and replaces the "opay.settings" key,
// writing the file atomically.
func (s *FileStore) Save(_ context.Context, creds *domain.Credentials) error {
	if err := validateForSave(creds); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}

	value := &yaml.Node{}
	if err := value.Encode(creds); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	replace(doc.Content[0], domain.SettingsName, value)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	return s.writeFile(data)
}

// readDocument parses the file into a document whose root is a mapping.
// A missing or empty file yields an empty mapping.
func (s *FileStore) readDocument() (*yaml.Node, error) {
	data, err := os.ReadFile(s.path) //nolint:gosec // path from trusted config
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	doc := &yaml.Node{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}, nil
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("parsing settings file: top level is not a mapping")
	}
	return doc, nil
}

func (s *FileStore) writeFile(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".opay-settings-*")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("writing settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing settings file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("setting settings file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing settings file: %w", err)
	}
	return nil
}

// lookup returns the value stored under key in a mapping node.
func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// replace sets key to value in a mapping node, appending the key when
// it is absent.
func replace(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

// Ping checks that the settings directory is reachable.
func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("settings directory: %w", err)
	}
	return nil
}

// Close is a no-op.
func (*FileStore) Close() {}
