package sso

import (
	"context"
	"database/sql"
	"fmt"
)

// Storage handles SSO provider configuration storage
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new SSO provider storage
func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// CreateProvider creates a new provider configuration for a root group
func (s *Storage) CreateProvider(ctx context.Context, provider *Provider) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sso_providers (group_id, enforced, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, provider.GroupID, provider.Enforced, provider.Enabled).
		Scan(&provider.ID, &provider.CreatedAt, &provider.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

// GetProvider retrieves a provider by ID. Returns nil when no provider exists.
func (s *Storage) GetProvider(ctx context.Context, id int64) (*Provider, error) {
	provider := &Provider{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, enforced, enabled, created_at, updated_at
		FROM sso_providers
		WHERE id = $1
	`, id).Scan(&provider.ID, &provider.GroupID, &provider.Enforced,
		&provider.Enabled, &provider.CreatedAt, &provider.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider %d: %w", id, err)
	}
	return provider, nil
}

// GetProviderForGroup retrieves the provider owned by a root group. Absence
// is not an error: a nil provider means no SSO policy applies to the group.
func (s *Storage) GetProviderForGroup(ctx context.Context, groupID int64) (*Provider, error) {
	provider := &Provider{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, enforced, enabled, created_at, updated_at
		FROM sso_providers
		WHERE group_id = $1
	`, groupID).Scan(&provider.ID, &provider.GroupID, &provider.Enforced,
		&provider.Enabled, &provider.CreatedAt, &provider.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider for group %d: %w", groupID, err)
	}
	return provider, nil
}

// ListProviders lists all providers, optionally restricted to enabled ones
func (s *Storage) ListProviders(ctx context.Context, enabledOnly bool) ([]*Provider, error) {
	query := `
		SELECT id, group_id, enforced, enabled, created_at, updated_at
		FROM sso_providers
	`
	if enabledOnly {
		query += " WHERE enabled = true"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []*Provider
	for rows.Next() {
		provider := &Provider{}
		err := rows.Scan(&provider.ID, &provider.GroupID, &provider.Enforced,
			&provider.Enabled, &provider.CreatedAt, &provider.UpdatedAt)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}

	return providers, rows.Err()
}

// UpdateProvider updates an existing provider's flags
func (s *Storage) UpdateProvider(ctx context.Context, provider *Provider) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sso_providers
		SET enforced = $1, enabled = $2, updated_at = NOW()
		WHERE id = $3
	`, provider.Enforced, provider.Enabled, provider.ID)
	if err != nil {
		return fmt.Errorf("failed to update provider %d: %w", provider.ID, err)
	}
	return nil
}

// DeleteProvider deletes a provider
func (s *Storage) DeleteProvider(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sso_providers WHERE id = $1`, id)
	return err
}
