package run

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campaign-automator-api/internal/api/common"
	"campaign-automator-api/internal/automation"
	"campaign-automator-api/internal/domain"
	"campaign-automator-api/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, req automation.Request) (automation.BatchResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(automation.BatchResult), args.Error(1)
}

func serviceRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/automation/run", strings.NewReader(body))
	ctx := context.WithValue(req.Context(), common.RoleContextKey, common.ServiceRole)
	return req.WithContext(ctx)
}

func userRequest(body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/automation/run", strings.NewReader(body))
	ctx := context.WithValue(req.Context(), common.UserContextKey, userID)
	ctx = context.WithValue(ctx, common.RoleContextKey, "authenticated")
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp
}

func TestHandleRunAutomation_ServiceRole(t *testing.T) {
	testLogger := zap.NewNop()
	ruleID := uuid.New()
	batch := automation.BatchResult{
		Total:    1,
		Executed: 1,
		Details: []automation.RuleOutcome{
			{RuleID: ruleID, Name: "Pause low ROAS", Status: domain.OutcomeExecuted},
		},
	}

	t.Run("Empty body defaults to check_all", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, automation.Request{Mode: automation.ModeCheckAll}).Return(batch, nil)

		rr := httptest.NewRecorder()
		HandleRunAutomation(runner, &store.MockStore{}, testLogger).ServeHTTP(rr, serviceRequest(""))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 1, resp.Results.Executed)
		require.Len(t, resp.Results.Details, 1)
		assert.Equal(t, ruleID, resp.Results.Details[0].RuleID)
		runner.AssertExpectations(t)
	})

	t.Run("check_user for any user", func(t *testing.T) {
		userID := uuid.New()
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, automation.Request{Mode: automation.ModeCheckUser, UserID: &userID}).
			Return(automation.BatchResult{Details: []automation.RuleOutcome{}}, nil)

		rr := httptest.NewRecorder()
		body := `{"mode":"check_user","userId":"` + userID.String() + `"}`
		HandleRunAutomation(runner, &store.MockStore{}, testLogger).ServeHTTP(rr, serviceRequest(body))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true,"results":{"total":0,"executed":0,"skipped":0,"failed":0,"details":[]}}`, rr.Body.String())
		runner.AssertExpectations(t)
	})

	t.Run("Candidate loading failure is a 500", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, mock.Anything).Return(automation.BatchResult{}, errors.New("could not load active rules: connection reset"))

		rr := httptest.NewRecorder()
		HandleRunAutomation(runner, &store.MockStore{}, testLogger).ServeHTTP(rr, serviceRequest(`{"mode":"check_all"}`))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		resp := decodeError(t, rr)
		assert.Contains(t, resp.Error, "connection reset")
	})
}

func TestHandleRunAutomation_Validation(t *testing.T) {
	testLogger := zap.NewNop()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "unknown mode", body: `{"mode":"check_everything"}`, wantErr: "unknown mode"},
		{name: "check_user without userId", body: `{"mode":"check_user"}`, wantErr: "userId is required"},
		{name: "check_rule without ruleId", body: `{"mode":"check_rule"}`, wantErr: "ruleId is required"},
		{name: "malformed userId", body: `{"mode":"check_user","userId":"nope"}`, wantErr: "invalid userId"},
		{name: "malformed ruleId", body: `{"mode":"check_rule","ruleId":"nope"}`, wantErr: "invalid ruleId"},
		{name: "invalid JSON", body: `{"mode":`, wantErr: "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{}
			rr := httptest.NewRecorder()

			HandleRunAutomation(runner, &store.MockStore{}, testLogger).ServeHTTP(rr, serviceRequest(tt.body))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			resp := decodeError(t, rr)
			assert.Contains(t, resp.Error, tt.wantErr)
			runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleRunAutomation_UserToken(t *testing.T) {
	testLogger := zap.NewNop()
	userID := uuid.New()

	t.Run("check_all is forbidden", func(t *testing.T) {
		runner := &mockRunner{}
		rr := httptest.NewRecorder()

		HandleRunAutomation(runner, &store.MockStore{}, testLogger).ServeHTTP(rr, userRequest("", userID))

		assert.Equal(t, http.StatusForbidden, rr.Code)
		runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("check_user for own rules", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, automation.Request{Mode: automation.ModeCheckUser, UserID: &userID}).
			Return(automation.BatchResult{Details: []automation.RuleOutcome{}}, nil)

		rr := httptest.NewRecorder()
		body := `{"mode":"check_user","userId":"` + userID.String() + `"}`
		HandleRunAutomation(runner, &store.MockStore{}, testLogger).ServeHTTP(rr, userRequest(body, userID))

		assert.Equal(t, http.StatusOK, rr.Code)
		runner.AssertExpectations(t)
	})

	t.Run("check_user for another user is forbidden", func(t *testing.T) {
		runner := &mockRunner{}
		rr := httptest.NewRecorder()
		body := `{"mode":"check_user","userId":"` + uuid.NewString() + `"}`

		HandleRunAutomation(runner, &store.MockStore{}, testLogger).ServeHTTP(rr, userRequest(body, userID))

		assert.Equal(t, http.StatusForbidden, rr.Code)
		runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("check_rule on an owned rule", func(t *testing.T) {
		ruleID := uuid.New()
		mockStore := &store.MockStore{}
		mockStore.On("VerifyRuleOwnership", mock.Anything, ruleID, userID).Return(nil)
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, automation.Request{Mode: automation.ModeCheckRule, RuleID: &ruleID}).
			Return(automation.BatchResult{Total: 1, Skipped: 1, Details: []automation.RuleOutcome{
				{RuleID: ruleID, Status: domain.OutcomeSkipped, Reason: automation.ReasonCooldown},
			}}, nil)

		rr := httptest.NewRecorder()
		body := `{"mode":"check_rule","ruleId":"` + ruleID.String() + `"}`
		HandleRunAutomation(runner, mockStore, testLogger).ServeHTTP(rr, userRequest(body, userID))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"reason":"cooldown active"`)
		mockStore.AssertExpectations(t)
		runner.AssertExpectations(t)
	})

	t.Run("check_rule on a foreign rule is forbidden", func(t *testing.T) {
		ruleID := uuid.New()
		mockStore := &store.MockStore{}
		mockStore.On("VerifyRuleOwnership", mock.Anything, ruleID, userID).Return(domain.ErrForbidden)
		runner := &mockRunner{}

		rr := httptest.NewRecorder()
		body := `{"mode":"check_rule","ruleId":"` + ruleID.String() + `"}`
		HandleRunAutomation(runner, mockStore, testLogger).ServeHTTP(rr, userRequest(body, userID))

		assert.Equal(t, http.StatusForbidden, rr.Code)
		runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("ownership lookup failure", func(t *testing.T) {
		ruleID := uuid.New()
		mockStore := &store.MockStore{}
		mockStore.On("VerifyRuleOwnership", mock.Anything, ruleID, userID).Return(errors.New("timeout"))

		rr := httptest.NewRecorder()
		body := `{"mode":"check_rule","ruleId":"` + ruleID.String() + `"}`
		HandleRunAutomation(&mockRunner{}, mockStore, testLogger).ServeHTTP(rr, userRequest(body, userID))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("missing user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/automation/run", strings.NewReader(""))
		rr := httptest.NewRecorder()

		HandleRunAutomation(&mockRunner{}, &store.MockStore{}, testLogger).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestHandlePreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/automation/run", nil)
	rr := httptest.NewRecorder()

	HandlePreflight().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
}
