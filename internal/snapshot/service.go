// Package snapshot archives accepted gene documents in per-gene git
// repositories, giving each gene a browsable timeline of its fully reviewed
// states independent of the field-level audit trail.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const geneFile = "gene.json"

// CommitInfo describes one archived state.
type CommitInfo struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// CommitGene archives one state of a gene document, initializing the gene's
// repository on first use.
func (s *Service) CommitGene(symbol string, doc []byte, author, message string) error {
	lock := s.geneLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(symbol)
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	pretty, err := prettyJSON(doc)
	if err != nil {
		return fmt.Errorf("format snapshot for %s: %w", symbol, err)
	}
	if err := os.WriteFile(filepath.Join(s.repoPath(symbol), geneFile), pretty, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := worktree.Add(geneFile); err != nil {
		return fmt.Errorf("git add snapshot: %w", err)
	}
	if _, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.genekb.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	}); err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return nil
		}
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// History lists archived states, newest first.
func (s *Service) History(symbol string, limit int) ([]CommitInfo, error) {
	lock := s.geneLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(symbol))
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	var items []CommitInfo
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, CommitInfo{
			Hash:    commitObj.Hash.String(),
			Author:  commitObj.Author.Name,
			Message: commitObj.Message,
			When:    commitObj.Author.When,
		})
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// GetSnapshot reads the archived document at a given commit.
func (s *Service) GetSnapshot(symbol, hash string) (json.RawMessage, error) {
	lock := s.geneLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(symbol))
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	commitObj, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, fmt.Errorf("resolve commit %s: %w", hash, err)
	}
	file, err := commitObj.File(geneFile)
	if err != nil {
		return nil, fmt.Errorf("load snapshot from commit: %w", err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open snapshot reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return raw, nil
}

func (s *Service) openOrInit(symbol string) (*git.Repository, error) {
	path := s.repoPath(symbol)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(symbol string) string {
	return filepath.Join(s.baseDir, symbol)
}

func (s *Service) geneLock(symbol string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[symbol]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[symbol] = lock
	return lock
}

func prettyJSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func sanitizeEmail(author string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(author), " ", "."))
}
