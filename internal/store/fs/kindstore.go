package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/veritaschain/veritaschain/internal/verrors"
)

// kindStore is the generic, mutex-guarded implementation backing both
// store.VersionedStore[T] (entities/actions/events) and store.BlobStore[T]
// (commits/trees, via adapters whose LogicalID always returns ""). Objects
// are stored one-per-file at objects/<kind>/<hash-without-prefix>.json;
// version chains for non-blob kinds are tracked in history/<kind>/<logicalId>.log
// as a newline-delimited list of hashes, oldest first.
type kindStore[T any] struct {
	mu      sync.RWMutex
	dir     string // objects/<kind>
	histDir string // history/<kind>
	kind    string
	logger  *slog.Logger
	adapter adapter[T]
}

func newKindStore[T any](root, kind string, logger *slog.Logger, a adapter[T]) *kindStore[T] {
	return &kindStore[T]{
		dir:     filepath.Join(root, "objects", kind),
		histDir: filepath.Join(root, "history", kind),
		kind:    kind,
		logger:  logger,
		adapter: a,
	}
}

func (k *kindStore[T]) objectPath(hash string) string {
	return filepath.Join(k.dir, hashFilename(hash)+".json")
}

// hashFilename strips the "sha256:" scheme prefix so the filename is a bare
// hex digest; Validate has already run by the time objects reach the store.
func hashFilename(hash string) string {
	if len(hash) > 7 && hash[:7] == "sha256:" {
		return hash[7:]
	}
	return hash
}

func (k *kindStore[T]) Put(ctx context.Context, hash string, obj T) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	path := k.objectPath(hash)
	payload, err := k.adapter.Marshal(obj)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", k.kind, err)
	}

	if existing, err := os.ReadFile(path); err == nil {
		var same bool
		same, err = jsonEqual(existing, payload)
		if err != nil {
			return fmt.Errorf("%s: compare existing: %w", k.kind, err)
		}
		if !same {
			return &verrors.HashCollision{Hash: hash}
		}
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%s: stat existing: %w", k.kind, err)
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("%s: write: %w", k.kind, err)
	}

	logicalID := k.adapter.LogicalID(obj)
	if logicalID == "" {
		return nil
	}
	if err := k.appendHistory(logicalID, hash); err != nil {
		return fmt.Errorf("%s: append history: %w", k.kind, err)
	}
	return nil
}

// jsonEqual compares two JSON payloads by decoded value rather than by raw
// bytes, since map key order is not guaranteed stable across encodes.
func jsonEqual(a, b []byte) (bool, error) {
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false, err
	}
	na, err := json.Marshal(va)
	if err != nil {
		return false, err
	}
	nb, err := json.Marshal(vb)
	if err != nil {
		return false, err
	}
	return string(na) == string(nb), nil
}

func (k *kindStore[T]) Get(ctx context.Context, hash string) (T, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var zero T
	raw, err := os.ReadFile(k.objectPath(hash))
	if os.IsNotExist(err) {
		return zero, &verrors.NotFound{Kind: k.kind, ID: hash}
	} else if err != nil {
		return zero, fmt.Errorf("%s: read: %w", k.kind, err)
	}
	obj, err := k.adapter.Unmarshal(raw)
	if err != nil {
		return zero, fmt.Errorf("%s: unmarshal: %w", k.kind, err)
	}
	return obj, nil
}

func (k *kindStore[T]) List(ctx context.Context) ([]T, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	entries, err := os.ReadDir(k.dir)
	if err != nil {
		return nil, fmt.Errorf("%s: list: %w", k.kind, err)
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(k.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: read %s: %w", k.kind, e.Name(), err)
		}
		obj, err := k.adapter.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: unmarshal %s: %w", k.kind, e.Name(), err)
		}
		out = append(out, obj)
	}
	return out, nil
}

func (k *kindStore[T]) RetrieveBatch(ctx context.Context, hashes []string) ([]T, error) {
	out := make([]T, 0, len(hashes))
	for _, h := range hashes {
		obj, err := k.Get(ctx, h)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// FindByLogicalID returns every stored version of logicalID ordered from
// root to latest, by replaying the append-only history file.
func (k *kindStore[T]) FindByLogicalID(ctx context.Context, logicalID string) ([]T, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	hashes, err := k.readHistory(logicalID)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(hashes))
	for _, h := range hashes {
		raw, err := os.ReadFile(k.objectPath(h))
		if err != nil {
			return nil, fmt.Errorf("%s: read version %s: %w", k.kind, h, err)
		}
		obj, err := k.adapter.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: unmarshal version %s: %w", k.kind, h, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

func (k *kindStore[T]) GetLatest(ctx context.Context, logicalID string) (T, error) {
	var zero T
	versions, err := k.FindByLogicalID(ctx, logicalID)
	if err != nil {
		return zero, err
	}
	if len(versions) == 0 {
		return zero, &verrors.NotFound{Kind: k.kind, ID: logicalID}
	}
	return versions[len(versions)-1], nil
}

func (k *kindStore[T]) historyPath(logicalID string) string {
	return filepath.Join(k.histDir, logicalID+".log")
}

func (k *kindStore[T]) readHistory(logicalID string) ([]string, error) {
	raw, err := os.ReadFile(k.historyPath(logicalID))
	if os.IsNotExist(err) {
		return nil, &verrors.NotFound{Kind: k.kind, ID: logicalID}
	} else if err != nil {
		return nil, fmt.Errorf("%s: read history: %w", k.kind, err)
	}
	var hashes []string
	for _, line := range splitLines(raw) {
		if line != "" {
			hashes = append(hashes, line)
		}
	}
	return hashes, nil
}

func (k *kindStore[T]) appendHistory(logicalID, hash string) error {
	if err := os.MkdirAll(k.histDir, 0o755); err != nil {
		return err
	}
	path := k.historyPath(logicalID)
	existing, err := k.readHistory(logicalID)
	if err != nil {
		if _, ok := err.(*verrors.NotFound); !ok {
			return err
		}
	}
	for _, h := range existing {
		if h == hash {
			return nil
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(hash + "\n")
	return err
}

func splitLines(raw []byte) []string {
	var lines []string
	start := 0
	for i, b := range raw {
		if b == '\n' {
			lines = append(lines, string(raw[start:i]))
			start = i + 1
		}
	}
	if start < len(raw) {
		lines = append(lines, string(raw[start:]))
	}
	return lines
}
