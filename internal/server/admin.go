package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ponxai/credits-bridge/internal/biz/repo"
)

// Admin exposes the operational endpoints: the global kill-switch and the
// per-month usage counters.
type Admin struct {
	killSwitch repo.SwitchRepo
	analytics  repo.AnalyticsRepo
}

// NewAdmin creates the admin handler.
func NewAdmin(store *repo.Store) *Admin {
	return &Admin{killSwitch: store.Switch, analytics: store.Analytics}
}

// ToggleSwitch flips the kill-switch and reports the new state.
func (a *Admin) ToggleSwitch(w http.ResponseWriter, r *http.Request) {
	enabled, err := a.killSwitch.Toggle(r.Context())
	if err != nil {
		fmt.Printf("[Admin] Switch toggle failed: %v\n", err)
		http.Error(w, "toggle failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"chatbot_on": enabled})
}

// YearAnalytics returns the monthly turn counters for one year. The year
// query parameter defaults to the current year.
func (a *Admin) YearAnalytics(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if val := r.URL.Query().Get("year"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		year = parsed
	}

	counts, err := a.analytics.YearCounts(r.Context(), year)
	if err != nil {
		fmt.Printf("[Admin] Analytics query failed: %v\n", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	type monthCount struct {
		Month   string `json:"month"`
		Counter int64  `json:"counter"`
	}
	out := make([]monthCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, monthCount{Month: c.Month, Counter: c.Counter})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
