package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campaign-automator-api/internal/database"
	"campaign-automator-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CampaignStorer defines the campaign reads and the two mutations actions may perform.
type CampaignStorer interface {
	GetCampaign(ctx context.Context, campaignID, userID uuid.UUID) (domain.Campaign, error)
	ListCampaigns(ctx context.Context, userID uuid.UUID, scope domain.CampaignScope) ([]domain.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, campaignID, userID uuid.UUID, status domain.CampaignStatus) error
	UpdateCampaignBudget(ctx context.Context, campaignID, userID uuid.UUID, budgetTotal float64) error
}

// CampaignStore handles campaign-related database operations
type CampaignStore struct {
	db database.Querier
}

// NewCampaignStore creates a new CampaignStore
func NewCampaignStore(db database.Querier) *CampaignStore {
	return &CampaignStore{db: db}
}

const campaignColumns = `id, user_id, name, platform, status,
           budget_total::float8, budget_spent::float8, clicks, conversions, cpc::float8,
           created_at, updated_at`

func scanCampaign(row pgx.Row) (domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Platform,
		&c.Status,
		&c.BudgetTotal,
		&c.BudgetSpent,
		&c.Clicks,
		&c.Conversions,
		&c.CPC,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// GetCampaign fetches a campaign owned by userID.
func (s *CampaignStore) GetCampaign(ctx context.Context, campaignID, userID uuid.UUID) (domain.Campaign, error) {
	query := `
    SELECT ` + campaignColumns + `
    FROM campaigns
    WHERE id = $1 AND user_id = $2;
    `
	c, err := scanCampaign(s.db.QueryRow(ctx, query, campaignID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Campaign{}, domain.ErrCampaignNotFound
		}
		return domain.Campaign{}, fmt.Errorf("db scan error: %w", err)
	}
	return c, nil
}

// ListCampaigns returns the user's campaigns, narrowed by platform and/or id
// when the scope sets them.
func (s *CampaignStore) ListCampaigns(ctx context.Context, userID uuid.UUID, scope domain.CampaignScope) ([]domain.Campaign, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}

	if scope.Platform != "" {
		args = append(args, scope.Platform)
		conditions = append(conditions, fmt.Sprintf("platform = $%d", len(args)))
	}
	if scope.CampaignID != nil {
		args = append(args, *scope.CampaignID)
		conditions = append(conditions, fmt.Sprintf("id = $%d", len(args)))
	}

	query := `
    SELECT ` + campaignColumns + `
    FROM campaigns
    WHERE ` + strings.Join(conditions, " AND ") + `
    ORDER BY created_at ASC;
    `
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}

	return campaigns, nil
}

// UpdateCampaignStatus ...
func (s *CampaignStore) UpdateCampaignStatus(ctx context.Context, campaignID, userID uuid.UUID, status domain.CampaignStatus) error {
	query := `
    UPDATE campaigns
    SET status = $3, updated_at = now()
    WHERE id = $1 AND user_id = $2;
    `
	cmdTag, err := s.db.Exec(ctx, query, campaignID, userID, string(status))
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

// UpdateCampaignBudget ...
func (s *CampaignStore) UpdateCampaignBudget(ctx context.Context, campaignID, userID uuid.UUID, budgetTotal float64) error {
	query := `
    UPDATE campaigns
    SET budget_total = $3, updated_at = now()
    WHERE id = $1 AND user_id = $2;
    `
	cmdTag, err := s.db.Exec(ctx, query, campaignID, userID, budgetTotal)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}
