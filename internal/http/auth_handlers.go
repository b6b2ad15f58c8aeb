package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sina1864/EChat/internal/store"
	"github.com/sina1864/EChat/pkg/auth"
)

type AuthAPI struct {
	DB  *store.Postgres
	JWT *auth.JWT
}

type registerReq struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	Password string `json:"password"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type tokenResp struct {
	Token string      `json:"token"`
	User  authUserDTO `json:"user"`
}
type authUserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Register handles account signup and returns a JWT
func (a *AuthAPI) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	// Basic validation
	if len(req.Password) < 8 || req.Username == "" {
		http.Error(w, "invalid username or weak password", http.StatusBadRequest)
		return
	}

	u, err := a.DB.CreateUser(r.Context(), req.Username, req.FullName, req.Avatar, req.Password)
	if err != nil {
		http.Error(w, "username already in use", http.StatusConflict)
		return
	}

	// Issue token for 24hrs
	tok, _ := a.JWT.Sign(u.Username, 24*time.Hour)
	writeJSON(w, tokenResp{Token: tok, User: userDTO(u)})
}

// Login verifies credentials and returns a JWT
func (a *AuthAPI) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	u, err := a.DB.VerifyUser(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	tok, _ := a.JWT.Sign(u.Username, 24*time.Hour)
	writeJSON(w, tokenResp{Token: tok, User: userDTO(u)})
}

// Me returns the authenticated user's profile
func (a *AuthAPI) Me(w http.ResponseWriter, r *http.Request) {
	username := auth.Username(r.Context())
	if username == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	u, _, err := a.DB.GetUserByUsername(r.Context(), username)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, userDTO(u))
}

func userDTO(u store.User) authUserDTO {
	return authUserDTO{ID: u.ID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
