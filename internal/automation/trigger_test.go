package automation

import (
	"context"
	"testing"
	"time"

	"campaign-automator-api/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEvaluator_RoasBelow(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	low := repo.addCampaign(domain.Campaign{
		UserEntity:  domain.UserEntity{UserID: userID},
		Name:        "Low",
		Platform:    "google",
		BudgetSpent: 1000,
		Conversions: 5,
	})
	e := NewEvaluator(repo, nil, nil)

	t.Run("triggers below threshold", func(t *testing.T) {
		eval, err := e.Evaluate(context.Background(), domain.RoasBelowTrigger{Value: 1.0}, userID)

		require.NoError(t, err)
		assert.True(t, eval.ShouldExecute)
		require.NotNil(t, eval.Context)
		assert.Equal(t, low.ID, *eval.Context.CampaignID)
		assert.Equal(t, "roas", eval.Context.Metric)
		assert.InDelta(t, 0.5, *eval.Context.Value, 1e-9)
		assert.InDelta(t, 1.0, *eval.Context.Threshold, 1e-9)
	})

	t.Run("zero spend never triggers", func(t *testing.T) {
		repo := newFakeRepo()
		repo.addCampaign(domain.Campaign{
			UserEntity:  domain.UserEntity{UserID: userID},
			Name:        "Fresh",
			BudgetSpent: 0,
			Conversions: 0,
		})

		eval, err := NewEvaluator(repo, nil, nil).Evaluate(context.Background(), domain.RoasBelowTrigger{Value: 1.0}, userID)

		require.NoError(t, err)
		assert.False(t, eval.ShouldExecute)
		assert.Nil(t, eval.Context)
	})

	t.Run("other users campaigns are invisible", func(t *testing.T) {
		eval, err := e.Evaluate(context.Background(), domain.RoasBelowTrigger{Value: 1.0}, uuid.New())

		require.NoError(t, err)
		assert.False(t, eval.ShouldExecute)
	})
}

func TestEvaluator_RoasAbove(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	repo.addCampaign(domain.Campaign{UserEntity: domain.UserEntity{UserID: userID}, Name: "Zero"})
	winner := repo.addCampaign(domain.Campaign{
		UserEntity:  domain.UserEntity{UserID: userID},
		Name:        "Winner",
		BudgetSpent: 100,
		Conversions: 4,
	})
	e := NewEvaluator(repo, nil, nil)

	eval, err := e.Evaluate(context.Background(), domain.RoasAboveTrigger{Value: 3}, userID)
	require.NoError(t, err)
	assert.True(t, eval.ShouldExecute)
	assert.Equal(t, winner.ID, *eval.Context.CampaignID)

	// No zero-spend guard on "above": a zero ROAS still beats a negative threshold.
	eval, err = e.Evaluate(context.Background(), domain.RoasAboveTrigger{Value: -1}, userID)
	require.NoError(t, err)
	assert.True(t, eval.ShouldExecute)
	assert.Equal(t, "Zero", eval.Context.CampaignName)
}

func TestEvaluator_CPCAbove(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	repo.addCampaign(domain.Campaign{UserEntity: domain.UserEntity{UserID: userID}, Name: "Meta", Platform: "meta", CPC: 3})
	repo.addCampaign(domain.Campaign{UserEntity: domain.UserEntity{UserID: userID}, Name: "Google", Platform: "google", CPC: 1})
	e := NewEvaluator(repo, nil, nil)

	eval, err := e.Evaluate(context.Background(), domain.CPCAboveTrigger{Value: 2}, userID)
	require.NoError(t, err)
	assert.True(t, eval.ShouldExecute)
	assert.Equal(t, "Meta", eval.Context.CampaignName)

	scoped := domain.CPCAboveTrigger{CampaignScope: domain.CampaignScope{Platform: "google"}, Value: 2}
	eval, err = e.Evaluate(context.Background(), scoped, userID)
	require.NoError(t, err)
	assert.False(t, eval.ShouldExecute)
}

func TestEvaluator_MetricThreshold(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	first := repo.addCampaign(domain.Campaign{UserEntity: domain.UserEntity{UserID: userID}, Name: "A", Clicks: 500})
	second := repo.addCampaign(domain.Campaign{UserEntity: domain.UserEntity{UserID: userID}, Name: "B", Clicks: 900})
	e := NewEvaluator(repo, nil, nil)

	t.Run("first match in storage order", func(t *testing.T) {
		trigger := domain.MetricThresholdTrigger{Metric: "clicks", Operator: ">", Value: 100}

		eval, err := e.Evaluate(context.Background(), trigger, userID)

		require.NoError(t, err)
		assert.True(t, eval.ShouldExecute)
		assert.Equal(t, first.ID, *eval.Context.CampaignID)
		assert.Equal(t, ">", eval.Context.Operator)
	})

	t.Run("campaign scope", func(t *testing.T) {
		id := second.ID
		trigger := domain.MetricThresholdTrigger{
			CampaignScope: domain.CampaignScope{CampaignID: &id},
			Metric:        "clicks",
			Operator:      ">=",
			Value:         900,
		}

		eval, err := e.Evaluate(context.Background(), trigger, userID)

		require.NoError(t, err)
		assert.True(t, eval.ShouldExecute)
		assert.Equal(t, second.ID, *eval.Context.CampaignID)
	})

	t.Run("unknown operator never matches", func(t *testing.T) {
		trigger := domain.MetricThresholdTrigger{Metric: "clicks", Operator: "≈", Value: 500}

		eval, err := e.Evaluate(context.Background(), trigger, userID)

		require.NoError(t, err)
		assert.False(t, eval.ShouldExecute)
	})

	t.Run("unknown metric is an error", func(t *testing.T) {
		trigger := domain.MetricThresholdTrigger{Metric: "impressions", Operator: ">", Value: 1}

		_, err := e.Evaluate(context.Background(), trigger, userID)

		assert.ErrorIs(t, err, ErrUnknownMetric)
	})
}

func TestEvaluator_BudgetThreshold(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	c := repo.addCampaign(domain.Campaign{
		UserEntity:  domain.UserEntity{UserID: userID},
		Name:        "Spend",
		BudgetTotal: 1000,
		BudgetSpent: 850,
	})
	empty := repo.addCampaign(domain.Campaign{UserEntity: domain.UserEntity{UserID: userID}, Name: "No budget", BudgetSpent: 10})
	e := NewEvaluator(repo, nil, nil)

	t.Run("85 percent crosses 80", func(t *testing.T) {
		eval, err := e.Evaluate(context.Background(), domain.BudgetThresholdTrigger{CampaignID: c.ID, Threshold: 80}, userID)

		require.NoError(t, err)
		assert.True(t, eval.ShouldExecute)
		assert.InDelta(t, 85, *eval.Context.Value, 1e-9)
		assert.Equal(t, "budget_spent_percentage", eval.Context.Metric)
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		eval, err := e.Evaluate(context.Background(), domain.BudgetThresholdTrigger{CampaignID: c.ID, Threshold: 85}, userID)

		require.NoError(t, err)
		assert.True(t, eval.ShouldExecute)
	})

	t.Run("below threshold", func(t *testing.T) {
		eval, err := e.Evaluate(context.Background(), domain.BudgetThresholdTrigger{CampaignID: c.ID, Threshold: 90}, userID)

		require.NoError(t, err)
		assert.False(t, eval.ShouldExecute)
	})

	t.Run("zero total budget does not trigger", func(t *testing.T) {
		eval, err := e.Evaluate(context.Background(), domain.BudgetThresholdTrigger{CampaignID: empty.ID, Threshold: 1}, userID)

		require.NoError(t, err)
		assert.False(t, eval.ShouldExecute)
	})

	t.Run("missing campaign is an error", func(t *testing.T) {
		_, err := e.Evaluate(context.Background(), domain.BudgetThresholdTrigger{CampaignID: uuid.New(), Threshold: 80}, userID)

		assert.ErrorIs(t, err, domain.ErrCampaignNotFound)
	})
}

func TestEvaluator_Schedule(t *testing.T) {
	// 2025-06-02 is a Monday.
	monday := func(h, m int) time.Time { return time.Date(2025, 6, 2, h, m, 0, 0, time.UTC) }
	trigger := domain.ScheduleTrigger{Time: "14:00", Days: []string{"monday"}}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"four minutes late", monday(14, 4), true},
		{"five minutes late", monday(14, 5), true},
		{"six minutes late", monday(14, 6), false},
		{"five minutes early", monday(13, 55), true},
		{"six minutes early", monday(13, 54), false},
		{"right time wrong day", monday(14, 0).AddDate(0, 0, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(newFakeRepo(), fixedClock(tt.now), time.UTC)

			eval, err := e.Evaluate(context.Background(), trigger, uuid.New())

			require.NoError(t, err)
			assert.Equal(t, tt.want, eval.ShouldExecute)
		})
	}

	t.Run("context carries time and day", func(t *testing.T) {
		e := NewEvaluator(newFakeRepo(), fixedClock(monday(14, 4)), time.UTC)

		eval, err := e.Evaluate(context.Background(), trigger, uuid.New())

		require.NoError(t, err)
		assert.Equal(t, "14:04", eval.Context.Time)
		assert.Equal(t, "monday", eval.Context.Day)
	})

	t.Run("no day rollover", func(t *testing.T) {
		e := NewEvaluator(newFakeRepo(), fixedClock(monday(0, 2)), time.UTC)

		eval, err := e.Evaluate(context.Background(), domain.ScheduleTrigger{Time: "23:58"}, uuid.New())

		require.NoError(t, err)
		assert.False(t, eval.ShouldExecute)
	})

	t.Run("empty schedule always fires", func(t *testing.T) {
		e := NewEvaluator(newFakeRepo(), fixedClock(monday(3, 17)), time.UTC)

		eval, err := e.Evaluate(context.Background(), domain.ScheduleTrigger{}, uuid.New())

		require.NoError(t, err)
		assert.True(t, eval.ShouldExecute)
	})

	t.Run("configured location", func(t *testing.T) {
		loc := time.FixedZone("CEST", 2*60*60)
		// 12:03 UTC is 14:03 in CEST.
		e := NewEvaluator(newFakeRepo(), fixedClock(monday(12, 3)), loc)

		eval, err := e.Evaluate(context.Background(), trigger, uuid.New())

		require.NoError(t, err)
		assert.True(t, eval.ShouldExecute)
	})
}

func TestEvaluator_CampaignStatus(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	c := repo.addCampaign(domain.Campaign{UserEntity: domain.UserEntity{UserID: userID}, Name: "Ended", Status: domain.CampaignEnded})
	e := NewEvaluator(repo, nil, nil)

	eval, err := e.Evaluate(context.Background(), domain.CampaignStatusTrigger{CampaignID: c.ID, Status: "ended"}, userID)
	require.NoError(t, err)
	assert.True(t, eval.ShouldExecute)
	assert.Equal(t, domain.CampaignEnded, eval.Context.Status)

	// Case-sensitive.
	eval, err = e.Evaluate(context.Background(), domain.CampaignStatusTrigger{CampaignID: c.ID, Status: "ENDED"}, userID)
	require.NoError(t, err)
	assert.False(t, eval.ShouldExecute)

	_, err = e.Evaluate(context.Background(), domain.CampaignStatusTrigger{CampaignID: c.ID, Status: "ended"}, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCampaignNotFound)
}
