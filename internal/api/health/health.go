package health

import (
	"context"
	"net/http"
	"time"

	"campaign-automator-api/internal/api/common"

	"go.uber.org/zap"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleHealth checks if the API server is running and the database answers.
// A nil pinger only reports the process as up.
func HandleHealth(db Pinger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				log.Warn("health check: database ping failed", zap.Error(err), zap.String("component", "api"))
				common.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":   "degraded",
					"database": "unreachable",
				}, log)
				return
			}
		}
		common.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, log)
	}
}
