package skills

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Approve/Reject for an unknown proposal id.
var ErrNotFound = errors.New("skill not found")

// BuiltinOrder is the fixed prompt order of the core skills. Built-ins
// always precede learned skills in the active set.
var BuiltinOrder = []string{"ticket-parser", "categorization", "routing", "resolution"}

// Store manages skill documents on disk: read-only built-ins loaded at
// startup, plus learned skills under dataDir (pending/ awaiting review,
// learned/ approved and active). Approve and Reject are serialized by a
// mutex so two concurrent decisions on the same id cannot both apply.
type Store struct {
	builtins []Document
	logger   *slog.Logger

	mu         sync.Mutex
	pendingDir string
	learnedDir string
}

// frontmatter is the YAML header of a skill markdown file.
type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// NewStore loads built-in skills from skillsDir (one <name>/SKILL.md per
// core skill) and prepares the learned-skill directories under dataDir.
// A missing built-in is logged and skipped rather than fatal: the
// composer simply gets fewer guidance sections.
func NewStore(skillsDir, dataDir string, logger *slog.Logger) (*Store, error) {
	pendingDir := filepath.Join(dataDir, "skills", "pending")
	learnedDir := filepath.Join(dataDir, "skills", "learned")
	for _, dir := range []string{pendingDir, learnedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create skill dir %s: %w", dir, err)
		}
	}

	s := &Store{
		logger:     logger,
		pendingDir: pendingDir,
		learnedDir: learnedDir,
	}

	for _, name := range BuiltinOrder {
		path := filepath.Join(skillsDir, name, "SKILL.md")
		doc, err := readSkillFile(path)
		if err != nil {
			logger.Warn("builtin skill unavailable", "skill", name, "error", err)
			continue
		}
		doc.ID = name
		if doc.Name == "" {
			doc.Name = name
		}
		doc.State = StateBuiltIn
		s.builtins = append(s.builtins, doc)
	}

	return s, nil
}

// readSkillFile parses a markdown document with optional YAML frontmatter.
func readSkillFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read skill: %w", err)
	}

	body := string(data)
	var fm frontmatter
	if strings.HasPrefix(body, "---") {
		parts := strings.SplitN(body, "---", 3)
		if len(parts) == 3 {
			if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
				return Document{}, fmt.Errorf("parse skill frontmatter: %w", err)
			}
			body = strings.TrimLeft(parts[2], "\n")
		}
	}

	return Document{
		Name:        fm.Name,
		Description: fm.Description,
		Body:        body,
	}, nil
}

// ListActive returns the skills composed into prediction prompts:
// built-ins first in declared order, then approved learned skills by
// approval time. Pending proposals are never included.
func (s *Store) ListActive() ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Document, len(s.builtins))
	copy(active, s.builtins)

	learned, err := s.readDir(s.learnedDir)
	if err != nil {
		return nil, err
	}
	sort.Slice(learned, func(i, j int) bool {
		return learned[i].ApprovedAt.Before(learned[j].ApprovedAt)
	})
	return append(active, learned...), nil
}

// ListPending returns proposals awaiting a decision, oldest first.
func (s *Store) ListPending() ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.readDir(s.pendingDir)
	if err != nil {
		return nil, err
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].GeneratedAt.Before(pending[j].GeneratedAt)
	})
	return pending, nil
}

// GetPending returns a single pending proposal by id.
func (s *Store) GetPending(id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readDocument(s.pendingDir, id)
}

// SavePending persists a freshly drafted proposal. Each proposal carries
// a fresh id, so concurrent drafts never overwrite one another.
func (s *Store) SavePending(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.State = StatePending
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now().UTC()
	}
	return s.writeDocument(s.pendingDir, doc)
}

// Approve moves a pending proposal into the active learned set. The
// transition is one-way and idempotent: approving an id that is already
// in the learned set is a no-op, an unknown id returns ErrNotFound. The
// approved copy is written before the pending record is removed, so a
// failure mid-way leaves the proposal still pending rather than lost.
func (s *Store) Approve(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument(s.pendingDir, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Already approved earlier?
			if _, lerr := s.readDocument(s.learnedDir, id); lerr == nil {
				return nil
			}
			return ErrNotFound
		}
		return err
	}

	doc.State = StateApproved
	doc.ApprovedAt = time.Now().UTC()
	if err := s.writeDocument(s.learnedDir, doc); err != nil {
		return fmt.Errorf("promote skill %s: %w", id, err)
	}
	s.removeDocument(s.pendingDir, id)

	s.logger.Info("skill approved", "skill_id", id, "name", doc.Name)
	return nil
}

// Reject removes a pending proposal. Unknown ids (including ids already
// rejected) return ErrNotFound.
func (s *Store) Reject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.readDocument(s.pendingDir, id); err != nil {
		return err
	}
	s.removeDocument(s.pendingDir, id)

	s.logger.Info("skill rejected", "skill_id", id)
	return nil
}

func (s *Store) readDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read skill dir %s: %w", dir, err)
	}

	var docs []Document
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".yaml")
		doc, err := s.readDocument(dir, id)
		if err != nil {
			s.logger.Warn("skipping unreadable skill", "skill_id", id, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) readDocument(dir, id string) (Document, error) {
	meta, err := os.ReadFile(filepath.Join(dir, id+".yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("read skill metadata %s: %w", id, err)
	}

	var doc Document
	if err := yaml.Unmarshal(meta, &doc); err != nil {
		return Document{}, fmt.Errorf("parse skill metadata %s: %w", id, err)
	}

	body, err := os.ReadFile(filepath.Join(dir, id+".md"))
	if err != nil {
		return Document{}, fmt.Errorf("read skill body %s: %w", id, err)
	}
	doc.Body = string(body)
	return doc, nil
}

func (s *Store) writeDocument(dir string, doc Document) error {
	meta, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal skill metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, doc.ID+".md"), []byte(doc.Body), 0o644); err != nil {
		return fmt.Errorf("write skill body: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, doc.ID+".yaml"), meta, 0o644); err != nil {
		return fmt.Errorf("write skill metadata: %w", err)
	}
	return nil
}

func (s *Store) removeDocument(dir, id string) {
	for _, ext := range []string{".yaml", ".md"} {
		if err := os.Remove(filepath.Join(dir, id+ext)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove skill file", "skill_id", id, "error", err)
		}
	}
}
