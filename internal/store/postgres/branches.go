package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/verrors"
)

// repoStore implements store.RepositoryStore against the single-row
// repo_head table (its id is pinned to 1 by a CHECK constraint, so there is
// never more than one current branch for a given database).
type repoStore struct {
	pool *pgxpool.Pool
}

func (r *repoStore) CurrentBranch(ctx context.Context) (string, error) {
	var branch string
	err := r.pool.QueryRow(ctx, `SELECT current_branch FROM repo_head WHERE id = 1`).Scan(&branch)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("repo: HEAD not initialized")
	} else if err != nil {
		return "", fmt.Errorf("repo: read HEAD: %w", err)
	}
	return branch, nil
}

func (r *repoStore) SetCurrentBranch(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO repo_head (id, current_branch) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET current_branch = EXCLUDED.current_branch`,
		name,
	)
	if err != nil {
		return fmt.Errorf("repo: write HEAD: %w", err)
	}
	return nil
}

// branchStore implements store.BranchStore against the branches table.
type branchStore struct {
	pool *pgxpool.Pool
}

func (b *branchStore) ListBranches(ctx context.Context) ([]model.Branch, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT name, head, created, author, description FROM branches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("branches: list: %w", err)
	}
	defer rows.Close()

	var out []model.Branch
	for rows.Next() {
		var br model.Branch
		if err := rows.Scan(&br.Name, &br.Head, &br.Created, &br.Author, &br.Description); err != nil {
			return nil, fmt.Errorf("branches: scan: %w", err)
		}
		out = append(out, br)
	}
	return out, rows.Err()
}

func (b *branchStore) GetBranch(ctx context.Context, name string) (model.Branch, error) {
	var br model.Branch
	err := b.pool.QueryRow(ctx,
		`SELECT name, head, created, author, description FROM branches WHERE name = $1`, name,
	).Scan(&br.Name, &br.Head, &br.Created, &br.Author, &br.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Branch{}, &verrors.BranchNotFound{Name: name}
	} else if err != nil {
		return model.Branch{}, fmt.Errorf("branches: get %s: %w", name, err)
	}
	return br, nil
}

func (b *branchStore) CreateBranch(ctx context.Context, br model.Branch) error {
	if err := model.ValidateBranchName(br.Name); err != nil {
		return err
	}
	_, err := b.pool.Exec(ctx,
		`INSERT INTO branches (name, head, created, author, description) VALUES ($1, $2, $3, $4, $5)`,
		br.Name, br.Head, br.Created, br.Author, br.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &verrors.BranchExists{Name: br.Name}
		}
		return fmt.Errorf("branches: create %s: %w", br.Name, err)
	}
	return nil
}

func (b *branchStore) UpdateBranch(ctx context.Context, name, newHead string) error {
	tag, err := b.pool.Exec(ctx, `UPDATE branches SET head = $1 WHERE name = $2`, newHead, name)
	if err != nil {
		return fmt.Errorf("branches: update %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return &verrors.BranchNotFound{Name: name}
	}
	return nil
}

func (b *branchStore) DeleteBranch(ctx context.Context, name string) error {
	tag, err := b.pool.Exec(ctx, `DELETE FROM branches WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("branches: delete %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return &verrors.BranchNotFound{Name: name}
	}
	return nil
}

func (b *branchStore) RenameBranch(ctx context.Context, oldName, newName string) error {
	if err := model.ValidateBranchName(newName); err != nil {
		return err
	}
	tag, err := b.pool.Exec(ctx, `UPDATE branches SET name = $1 WHERE name = $2`, newName, oldName)
	if err != nil {
		if isUniqueViolation(err) {
			return &verrors.BranchExists{Name: newName}
		}
		return fmt.Errorf("branches: rename %s: %w", oldName, err)
	}
	if tag.RowsAffected() == 0 {
		return &verrors.BranchNotFound{Name: oldName}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
