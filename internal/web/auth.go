package web

import (
	"net/http"

	"github.com/synox/telewall/internal/database"
)

// adminUser is the basic-auth username; telewall has a single admin
// account.
const adminUser = "admin"

// requireAuth enforces HTTP basic auth against the stored admin password
// hash. Until a password is set the API is open, so the password can be
// bootstrapped through it; a warning is logged per request to make the
// state visible.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash, err := s.settings.Get(r.Context(), database.SettingAdminPasswordHash)
		if err != nil {
			s.logger.Error("reading admin password hash failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if hash == "" {
			s.logger.Warn("no admin password set, api is unprotected")
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != adminUser {
			s.unauthorized(w)
			return
		}
		valid, err := database.CheckPassword(pass, hash)
		if err != nil {
			s.logger.Error("checking admin password failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !valid {
			s.unauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="telewall"`)
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

// handleSetPassword stores a new admin password.
func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if msg := decodeJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := database.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing admin password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := s.settings.Set(r.Context(), database.SettingAdminPasswordHash, hash); err != nil {
		s.logger.Error("storing admin password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("admin password updated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
