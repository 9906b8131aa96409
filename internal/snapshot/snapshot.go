// Package snapshot reads and writes coverage tree documents in the
// {teams, summary} shape served by the dashboard API.
package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
)

// ErrInvalidSnapshot indicates a document that is neither a grouped tree
// nor a flat list of test methods.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

type document struct {
	Teams   *[]coverage.TeamGroup `json:"teams"`
	Summary coverage.RootSummary  `json:"summary"`
}

// Decode reads a snapshot. Both the grouped {teams, summary} document and
// a flat JSON array of test methods are accepted. Summaries in the input
// are ignored and derived again from the methods.
func Decode(r io.Reader) (*coverage.Tree, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	dec := json.NewDecoder(br)
	switch first {
	case '[':
		var methods []coverage.Method
		if err := dec.Decode(&methods); err != nil {
			return nil, fmt.Errorf("%w: decoding methods: %w", ErrInvalidSnapshot, err)
		}
		return coverage.Group(methods), nil
	case '{':
		var doc document
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decoding tree: %w", ErrInvalidSnapshot, err)
		}
		if doc.Teams == nil {
			return nil, fmt.Errorf("%w: missing teams", ErrInvalidSnapshot)
		}
		return coverage.Recompute(&coverage.Tree{Teams: *doc.Teams}, nil), nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidSnapshot, first)
	}
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (*coverage.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	tree, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return tree, nil
}

// Encode writes tree as an indented grouped document. A nil tree is
// written as an empty one.
func Encode(w io.Writer, tree *coverage.Tree) error {
	if tree == nil {
		tree = coverage.Group(nil)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// WriteFile encodes tree to path. The document is written to a temporary
// file in the same directory and renamed into place, so a watcher never
// sees it half written.
func WriteFile(path string, tree *coverage.Tree) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, tree); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Flatten lists the methods of tree in order, filling in team, repository,
// package and class from the enclosing groups where a method leaves them empty.
func Flatten(tree *coverage.Tree) []coverage.Method {
	if tree == nil {
		return nil
	}
	methods := make([]coverage.Method, 0, tree.MethodCount())
	for _, team := range tree.Teams {
		for _, class := range team.Classes {
			for _, m := range class.Methods {
				if m.TeamName == "" {
					m.TeamName = team.TeamName
				}
				if m.TeamCode == "" {
					m.TeamCode = team.TeamCode
				}
				if m.Repository == "" {
					m.Repository = class.Repository
				}
				if m.PackageName == "" {
					m.PackageName = class.PackageName
				}
				if m.TestClass == "" {
					m.TestClass = class.ClassName
				}
				methods = append(methods, m)
			}
		}
	}
	return methods
}

func peekNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, errors.New("empty document")
			}
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, r.UnreadByte()
	}
}
