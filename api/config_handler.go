package api

import (
	"net/http"

	"github.com/seenimoa/fairvalue/internal/config"
	"github.com/seenimoa/fairvalue/internal/valuation"
)

// DefaultsResponse is the data of GET /api/v1/defaults: the model inputs a
// client should pre-fill its forms with.
type DefaultsResponse struct {
	Horizon         int                       `json:"horizon"`
	Scenarios       []valuation.NamedScenario `json:"scenarios"`
	DCF             valuation.DCFAssumptions  `json:"dcf"`
	RiskFreeSources []string                  `json:"riskFreeSources"`
	ScoringEnabled  bool                      `json:"scoringEnabled"`
}

// handleGetDefaults returns the configured valuation defaults. Secrets are
// never included.
func (s *Server) handleGetDefaults(w http.ResponseWriter, r *http.Request) {
	v := s.cfg.Valuation
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: DefaultsResponse{
			Horizon:         v.Horizon,
			Scenarios:       v.Scenarios,
			DCF:             v.DCF,
			RiskFreeSources: s.cfg.Data.RiskFreeSources,
			ScoringEnabled:  s.cfg.Data.ScoringURL != "",
		},
	})
}

// handleGetSecrets returns the masked status of every configured secret.
func (s *Server) handleGetSecrets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckSecrets(s.cfg),
	})
}
