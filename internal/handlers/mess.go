package handlers

import (
	"net/http"

	"messbook/internal/mess"
	"messbook/internal/middleware"
	"messbook/internal/models"
)

type messView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ManagerID  string `json:"manager_id"`
	InviteCode string `json:"invite_code"`
	CreatedAt  int64  `json:"created_at"`
}

func toMessView(m *models.Mess) messView {
	return messView{
		ID:         m.ID,
		Name:       m.Name,
		ManagerID:  m.ManagerID,
		InviteCode: m.InviteCode,
		CreatedAt:  m.CreatedAt,
	}
}

type memberView struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	PhotoURL    string  `json:"photo_url,omitempty"`
	Role        string  `json:"role"`
	Balance     float64 `json:"balance"`
}

func (h *Handler) identity(r *http.Request) mess.Identity {
	return mess.Identity{
		UserID:      middleware.GetUserID(r.Context()),
		DisplayName: middleware.GetDisplayName(r.Context()),
	}
}

func (h *Handler) createMess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	m, err := h.messes.Create(r.Context(), h.identity(r), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessView(m))
}

func (h *Handler) joinMess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"invite_code"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	m, err := h.messes.Join(r.Context(), h.identity(r), req.InviteCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessView(m))
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	if _, err := h.actor(r, messID); err != nil {
		writeError(w, err)
		return
	}

	members, err := h.messes.Members(r.Context(), messID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]memberView, len(members))
	for i, m := range members {
		views[i] = memberView{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			PhotoURL:    m.PhotoURL,
			Role:        string(m.Role),
			Balance:     m.Balance,
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) transferManager(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	actor, err := h.actor(r, messID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		NewManagerID string `json:"new_manager_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.messes.TransferManager(r.Context(), actor, messID, req.NewManagerID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type settingsView struct {
	IsBreakfastOn   bool   `json:"is_breakfast_on"`
	IsLunchOn       bool   `json:"is_lunch_on"`
	IsDinnerOn      bool   `json:"is_dinner_on"`
	BreakfastCutoff string `json:"breakfast_cutoff"`
	LunchCutoff     string `json:"lunch_cutoff"`
	DinnerCutoff    string `json:"dinner_cutoff"`
	Timezone        string `json:"timezone"`
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	if _, err := h.actor(r, messID); err != nil {
		writeError(w, err)
		return
	}

	s, err := h.messes.Settings(r.Context(), messID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsView{
		IsBreakfastOn:   s.IsBreakfastOn,
		IsLunchOn:       s.IsLunchOn,
		IsDinnerOn:      s.IsDinnerOn,
		BreakfastCutoff: s.BreakfastCutoff,
		LunchCutoff:     s.LunchCutoff,
		DinnerCutoff:    s.DinnerCutoff,
		Timezone:        s.Timezone,
	})
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	actor, err := h.actor(r, messID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req settingsView
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err = h.messes.UpdateSettings(r.Context(), actor, &models.MealSettings{
		MessID:          messID,
		IsBreakfastOn:   req.IsBreakfastOn,
		IsLunchOn:       req.IsLunchOn,
		IsDinnerOn:      req.IsDinnerOn,
		BreakfastCutoff: req.BreakfastCutoff,
		LunchCutoff:     req.LunchCutoff,
		DinnerCutoff:    req.DinnerCutoff,
		Timezone:        req.Timezone,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
