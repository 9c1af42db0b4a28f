package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritaschain/veritaschain/internal/verrors"
)

// kindStore is the generic implementation backing both
// store.VersionedStore[T] (entities/actions/events) and store.BlobStore[T]
// (commits/trees), all sharing the single "objects" table partitioned by
// kind.
type kindStore[T any] struct {
	pool    *pgxpool.Pool
	kind    string
	logger  *slog.Logger
	adapter adapter[T]
}

func newKindStore[T any](pool *pgxpool.Pool, kind string, logger *slog.Logger, a adapter[T]) *kindStore[T] {
	return &kindStore[T]{pool: pool, kind: kind, logger: logger, adapter: a}
}

func (k *kindStore[T]) Put(ctx context.Context, hash string, obj T) error {
	payload, err := k.adapter.Marshal(obj)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", k.kind, err)
	}
	logicalID := k.adapter.LogicalID(obj)
	var logicalIDArg any
	if logicalID != "" {
		logicalIDArg = logicalID
	}

	return withRetry(ctx, k.logger, "put:"+k.kind, func() error {
		var existing []byte
		err := k.pool.QueryRow(ctx,
			`SELECT payload FROM objects WHERE kind = $1 AND hash = $2`,
			k.kind, hash,
		).Scan(&existing)
		if err == nil {
			same, err := jsonEqual(existing, payload)
			if err != nil {
				return fmt.Errorf("%s: compare existing: %w", k.kind, err)
			}
			if !same {
				return &verrors.HashCollision{Hash: hash}
			}
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s: check existing: %w", k.kind, err)
		}
		_, err = k.pool.Exec(ctx,
			`INSERT INTO objects (kind, hash, logical_id, payload) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (kind, hash) DO NOTHING`,
			k.kind, hash, logicalIDArg, payload,
		)
		if err != nil {
			return fmt.Errorf("%s: insert: %w", k.kind, err)
		}
		return nil
	})
}

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
	var zero T
	var payload []byte
	err := k.pool.QueryRow(ctx,
		`SELECT payload FROM objects WHERE kind = $1 AND hash = $2`,
		k.kind, hash,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, &verrors.NotFound{Kind: k.kind, ID: hash}
	} else if err != nil {
		return zero, fmt.Errorf("%s: get: %w", k.kind, err)
	}
	obj, err := k.adapter.Unmarshal(payload)
	if err != nil {
		return zero, fmt.Errorf("%s: unmarshal: %w", k.kind, err)
	}
	return obj, nil
}

func (k *kindStore[T]) List(ctx context.Context) ([]T, error) {
	rows, err := k.pool.Query(ctx, `SELECT payload FROM objects WHERE kind = $1`, k.kind)
	if err != nil {
		return nil, fmt.Errorf("%s: list: %w", k.kind, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", k.kind, err)
		}
		obj, err := k.adapter.Unmarshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", k.kind, err)
		}
		out = append(out, obj)
	}
	return out, rows.Err()
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
// root to latest, following PreviousVersion pointers the same way the
// filesystem backend replays its history log.
func (k *kindStore[T]) FindByLogicalID(ctx context.Context, logicalID string) ([]T, error) {
	rows, err := k.pool.Query(ctx,
		`SELECT payload FROM objects WHERE kind = $1 AND logical_id = $2`,
		k.kind, logicalID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: find by logical id: %w", k.kind, err)
	}
	defer rows.Close()

	byHash := make(map[string]T)
	var byPrev = make(map[string]string) // previous hash -> this hash
	var root string
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", k.kind, err)
		}
		obj, err := k.adapter.Unmarshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", k.kind, err)
		}
		h, err := k.adapter.Hash(obj)
		if err != nil {
			return nil, fmt.Errorf("%s: hash: %w", k.kind, err)
		}
		byHash[h] = obj
		if prev := k.adapter.Previous(obj); prev != nil && *prev != "" {
			byPrev[*prev] = h
		} else {
			root = h
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(byHash) == 0 {
		var zero []T
		return zero, &verrors.NotFound{Kind: k.kind, ID: logicalID}
	}

	out := make([]T, 0, len(byHash))
	for h := root; h != ""; h = byPrev[h] {
		out = append(out, byHash[h])
		if _, ok := byPrev[h]; !ok {
			break
		}
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
