package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sina1864/EChat/internal/presence"
	"github.com/sina1864/EChat/internal/store"
	"github.com/sina1864/EChat/pkg/auth"
)

// RoomsAPI serves the persisted room records plus the live occupant view
// of the presence core.
type RoomsAPI struct {
	DB     *store.Postgres
	Router *presence.Router
}

type createRoomReq struct {
	Name string `json:"name"`
}

type roomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AdminID   string    `json:"adminId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Create handles new room creation for the authenticated user.
func (a *RoomsAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	username := auth.Username(r.Context())
	u, _, err := a.DB.GetUserByUsername(r.Context(), username)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rm, err := a.DB.CreateRoom(r.Context(), strings.TrimSpace(req.Name), u.ID)
	if err != nil {
		http.Error(w, "room already exists", http.StatusConflict)
		return
	}
	writeJSON(w, roomResponse{ID: rm.ID, Name: rm.Name, AdminID: rm.AdminID, CreatedAt: rm.CreatedAt})
}

// List returns up to 100 rooms
func (a *RoomsAPI) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.DB.ListRooms(r.Context(), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]roomResponse, 0, len(rooms))
	for _, rm := range rooms {
		resp = append(resp, roomResponse{ID: rm.ID, Name: rm.Name, AdminID: rm.AdminID, CreatedAt: rm.CreatedAt})
	}
	writeJSON(w, resp)
}

// Delete removes a room record; only its admin may do so.
func (a *RoomsAPI) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	username := auth.Username(r.Context())
	u, _, err := a.DB.GetUserByUsername(r.Context(), username)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := a.DB.DeleteRoom(r.Context(), id, u.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Occupants returns the live presence view of a room by name.
func (a *RoomsAPI) Occupants(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	views := a.Router.ListOccupants(name)
	if views == nil {
		views = []presence.UserView{}
	}
	writeJSON(w, views)
}
