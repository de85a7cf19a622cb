package handlers

import (
	"net/http"
	"strconv"

	"messbook/internal/middleware"
	"messbook/internal/models"
)

type mealStatusView struct {
	MemberID       string  `json:"member_id"`
	Date           string  `json:"date"`
	Breakfast      float64 `json:"breakfast"`
	Lunch          float64 `json:"lunch"`
	Dinner         float64 `json:"dinner"`
	GuestBreakfast float64 `json:"guest_breakfast"`
	GuestLunch     float64 `json:"guest_lunch"`
	GuestDinner    float64 `json:"guest_dinner"`
	IsSetByUser    bool    `json:"is_set_by_user"`
}

func toMealStatusView(s *models.MealStatus) mealStatusView {
	return mealStatusView{
		MemberID:       s.MemberID,
		Date:           s.Date,
		Breakfast:      s.Breakfast,
		Lunch:          s.Lunch,
		Dinner:         s.Dinner,
		GuestBreakfast: s.GuestBreakfast,
		GuestLunch:     s.GuestLunch,
		GuestDinner:    s.GuestDinner,
		IsSetByUser:    s.IsSetByUser,
	}
}

func (h *Handler) getMealStatus(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	if _, err := h.actor(r, messID); err != nil {
		writeError(w, err)
		return
	}

	memberID := r.URL.Query().Get("member_id")
	if memberID == "" {
		memberID = middleware.GetUserID(r.Context())
	}
	date := r.URL.Query().Get("date")

	status, err := h.meals.Get(r.Context(), messID, memberID, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMealStatusView(status))
}

func (h *Handler) mealLedger(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	if _, err := h.actor(r, messID); err != nil {
		writeError(w, err)
		return
	}

	memberID := r.URL.Query().Get("member_id")
	if memberID == "" {
		memberID = middleware.GetUserID(r.Context())
	}
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 30
	}

	seq, err := h.meals.Ledger(r.Context(), messID, memberID, days)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]mealStatusView, 0, days)
	for status := range seq {
		views = append(views, toMealStatusView(status))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) toggleMeal(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	actor, err := h.actor(r, messID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Date string `json:"date"`
		Meal string `json:"meal"`
		On   bool   `json:"on"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := h.meals.Toggle(r.Context(), actor, messID, req.Date, models.MealType(req.Meal), req.On)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMealStatusView(status))
}

func (h *Handler) logGuestMeals(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	actor, err := h.actor(r, messID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Date      string  `json:"date"`
		Breakfast float64 `json:"breakfast"`
		Lunch     float64 `json:"lunch"`
		Dinner    float64 `json:"dinner"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := h.meals.LogGuestMeals(r.Context(), actor, messID, req.Date, req.Breakfast, req.Lunch, req.Dinner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMealStatusView(status))
}

func (h *Handler) editMeals(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	actor, err := h.actor(r, messID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req mealStatusView
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := h.meals.Edit(r.Context(), actor, &models.MealStatus{
		MessID:         messID,
		MemberID:       req.MemberID,
		Date:           req.Date,
		Breakfast:      req.Breakfast,
		Lunch:          req.Lunch,
		Dinner:         req.Dinner,
		GuestBreakfast: req.GuestBreakfast,
		GuestLunch:     req.GuestLunch,
		GuestDinner:    req.GuestDinner,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMealStatusView(status))
}
