package store

import (
	"campaign-automator-api/internal/database"
	"campaign-automator-api/internal/store/campaign"
	"campaign-automator-api/internal/store/execution"
	"campaign-automator-api/internal/store/rule"
)

// Storer is de interface voor al onze database-interacties.
type Storer interface {
	rule.RuleStorer
	campaign.CampaignStorer
	execution.ExecutionStorer
}

// DBStore implementeert de Storer interface door de sub-stores te bundelen.
type DBStore struct {
	*rule.RuleStore
	*campaign.CampaignStore
	*execution.ExecutionStore
}

// NewStore maakt een nieuwe DBStore op een pool of transactie.
func NewStore(db database.Querier) Storer {
	return &DBStore{
		RuleStore:      rule.NewRuleStore(db),
		CampaignStore:  campaign.NewCampaignStore(db),
		ExecutionStore: execution.NewExecutionStore(db),
	}
}
