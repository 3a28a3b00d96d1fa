package run

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"campaign-automator-api/internal/api/common"
	"campaign-automator-api/internal/automation"
	"campaign-automator-api/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// BatchRunner executes one automation batch.
type BatchRunner interface {
	Run(ctx context.Context, req automation.Request) (automation.BatchResult, error)
}

// OwnershipVerifier checks that a rule belongs to a user.
type OwnershipVerifier interface {
	VerifyRuleOwnership(ctx context.Context, ruleID, userID uuid.UUID) error
}

// Response is the body of a successful batch call.
type Response struct {
	Success bool                   `json:"success"`
	Results automation.BatchResult `json:"results"`
}

// runPayload keeps the ids as strings so a malformed id is a 400, not a decode failure.
type runPayload struct {
	Mode   string `json:"mode"`
	UserID string `json:"userId"`
	RuleID string `json:"ruleId"`
}

// HandleRunAutomation runs a batch. Service tokens may use every mode; user
// tokens may only check their own rules.
func HandleRunAutomation(runner BatchRunner, rules OwnershipVerifier, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(w, r)
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}
		req, err = req.Normalize()
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}

		if status, msg := authorize(r.Context(), req, rules); status != http.StatusOK {
			common.WriteJSONError(w, status, msg, log)
			return
		}

		result, err := runner.Run(r.Context(), req)
		if err != nil {
			if errors.Is(err, automation.ErrInvalidRequest) {
				common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
				return
			}
			log.Error("automation run failed",
				zap.String("mode", string(req.Mode)),
				zap.Error(err),
				zap.String("component", "api"),
			)
			common.WriteJSONError(w, http.StatusInternalServerError, err.Error(), log)
			return
		}

		common.WriteJSON(w, http.StatusOK, Response{Success: true, Results: result}, log)
	}
}

// HandlePreflight answers a bare OPTIONS request with an empty 200.
func HandlePreflight() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (automation.Request, error) {
	var req automation.Request
	if r.Body == nil {
		return req, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return req, errors.New("could not read request body")
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return req, nil
	}

	var p runPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return req, errors.New("invalid JSON body")
	}
	req.Mode = automation.Mode(p.Mode)
	if p.UserID != "" {
		id, err := uuid.Parse(p.UserID)
		if err != nil {
			return req, errors.New("invalid userId")
		}
		req.UserID = &id
	}
	if p.RuleID != "" {
		id, err := uuid.Parse(p.RuleID)
		if err != nil {
			return req, errors.New("invalid ruleId")
		}
		req.RuleID = &id
	}
	return req, nil
}

func authorize(ctx context.Context, req automation.Request, rules OwnershipVerifier) (int, string) {
	if common.IsServiceRole(ctx) {
		return http.StatusOK, ""
	}
	userID, err := common.GetUserIDFromContext(ctx)
	if err != nil {
		return http.StatusUnauthorized, err.Error()
	}

	switch req.Mode {
	case automation.ModeCheckUser:
		if *req.UserID != userID {
			return http.StatusForbidden, "cannot check rules of another user"
		}
	case automation.ModeCheckRule:
		err := rules.VerifyRuleOwnership(ctx, *req.RuleID, userID)
		if errors.Is(err, domain.ErrForbidden) {
			return http.StatusForbidden, "rule not found or not owned by caller"
		}
		if err != nil {
			return http.StatusInternalServerError, "could not verify rule ownership"
		}
	default:
		return http.StatusForbidden, "check_all requires a service token"
	}
	return http.StatusOK, ""
}
