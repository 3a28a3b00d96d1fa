package execution

import (
	"errors"
	"net/http"
	"strconv"

	"campaign-automator-api/internal/api/common"
	"campaign-automator-api/internal/domain"
	"campaign-automator-api/internal/store"
	storeexec "campaign-automator-api/internal/store/execution"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxHistoryLimit = 200

// HandleGetRuleExecutions haalt de uitvoergeschiedenis van een regel op.
// Service tokens mogen elke regel lezen, gebruikers alleen hun eigen regels.
func HandleGetRuleExecutions(store store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ruleID, err := uuid.Parse(chi.URLParam(r, "ruleId"))
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Ongeldig rule ID", log)
			return
		}

		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Ongeldige limit", log)
			return
		}

		if !common.IsServiceRole(r.Context()) {
			userID, err := common.GetUserIDFromContext(r.Context())
			if err != nil {
				common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
				return
			}
			if err := store.VerifyRuleOwnership(r.Context(), ruleID, userID); err != nil {
				if errors.Is(err, domain.ErrForbidden) {
					common.WriteJSONError(w, http.StatusNotFound, "Regel niet gevonden", log)
					return
				}
				log.Error("could not verify rule ownership", zap.Error(err), zap.String("rule_id", ruleID.String()), zap.String("component", "api"))
				common.WriteJSONError(w, http.StatusInternalServerError, "Kon regel niet controleren", log)
				return
			}
		}

		executions, err := store.GetExecutionsForRule(r.Context(), ruleID, limit)
		if err != nil {
			log.Error("could not load rule executions", zap.Error(err), zap.String("rule_id", ruleID.String()), zap.String("component", "api"))
			common.WriteJSONError(w, http.StatusInternalServerError, "Kon uitvoeringen niet ophalen", log)
			return
		}
		if executions == nil {
			executions = []domain.AutomationRuleExecution{}
		}

		common.WriteJSON(w, http.StatusOK, executions, log)
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return storeexec.DefaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(limit, maxHistoryLimit), nil
}
