package http

import (
	"net/http"

	"ganhos/internal/home"
	applog "ganhos/internal/log"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(newSettingsView(s.deps.Settings.Current())).Write(w)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	next, err := ParseSettings(NewRequestBodyParser(r), s.deps.Settings.Current())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if err := s.deps.Settings.Update(r.Context(), next); err != nil {
		s.slog.LogError(r.Context(), "Failed to update settings", err, applog.ComponentSettings, applog.OpUpdate, applog.NewFields())
		FromError(err).Write(w)
		return
	}
	NewJSONResponse().JSON(newSettingsView(s.deps.Settings.Current())).Write(w)
}

type homeView struct {
	DiscountPercentage float64       `json:"discountPercentage"`
	MonthStartDay      int           `json:"monthStartDay"`
	Cards              []cardView    `json:"cards"`
	Recent             []voucherView `json:"recentVouchers"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	current := s.deps.Settings.Current()
	sum, err := s.deps.Home.Project(r.Context(), s.deps.Now(), current.MonthStartDay)
	if err != nil {
		s.slog.LogError(r.Context(), "Failed to project home summary", err, applog.ComponentHome, applog.OpProject, applog.NewFields())
		BadGatewayError("Failed to load home summary").Write(w)
		return
	}
	NewJSONResponse().JSON(homeView{
		DiscountPercentage: current.DiscountPercentage,
		MonthStartDay:      current.MonthStartDay,
		Cards:              newCardViews(home.Cards(sum.Periods, current)),
		Recent:             newVoucherViews(sum.Recent),
	}).Write(w)
}

func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	current, err := moveAnchor(r, s.deps.Expenses)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	status := http.StatusOK
	if !current {
		status = http.StatusAccepted
	}
	NewJSONResponse().
		Status(status).
		JSON(newSummaryView(s.deps.Expenses.Window(), s.deps.Expenses.Summary())).
		Write(w)
}
