package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Slots        *SlotHandler
	Sessions     *SessionHandler
	Availability *AvailabilityHandler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/mentors/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/mentors/")
		mentorID, resource, _ := strings.Cut(rest, "/")
		if mentorID == "" {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithMentorID(r.Context(), mentorID))

		switch resource {
		case "slots":
			if cfg.Slots == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Slots.List(w, r)
		case "availability":
			if cfg.Availability == nil {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Availability.ListRules(w, r)
			case http.MethodPost:
				cfg.Availability.CreateRule(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		case "blocked-times":
			if cfg.Availability == nil {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Availability.ListBlockedTimes(w, r)
			case http.MethodPost:
				cfg.Availability.CreateBlockedTime(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		default:
			http.NotFound(w, r)
		}
	})

	if cfg.Availability != nil {
		mux.HandleFunc("/availability/", func(w http.ResponseWriter, r *http.Request) {
			ruleID := strings.TrimPrefix(r.URL.Path, "/availability/")
			if ruleID == "" {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodPut:
				cfg.Availability.UpdateRule(w, r, ruleID)
			case http.MethodDelete:
				cfg.Availability.DeleteRule(w, r, ruleID)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
		mux.HandleFunc("/blocked-times/", func(w http.ResponseWriter, r *http.Request) {
			blockedID := strings.TrimPrefix(r.URL.Path, "/blocked-times/")
			if blockedID == "" {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodPut:
				cfg.Availability.UpdateBlockedTime(w, r, blockedID)
			case http.MethodDelete:
				cfg.Availability.DeleteBlockedTime(w, r, blockedID)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Sessions != nil {
		mux.HandleFunc("/bookings", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Sessions.Create(w, r)
		})
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Sessions.List(w, r)
		})
		mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
			sessionID, resource, _ := strings.Cut(rest, "/")
			if sessionID == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSessionID(r.Context(), sessionID))

			switch {
			case resource == "transitions":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Sessions.Transition(w, r)
			case resource == "participants":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Sessions.AddParticipant(w, r)
			case strings.HasPrefix(resource, "participants/"):
				userID := strings.TrimPrefix(resource, "participants/")
				if r.Method != http.MethodDelete {
					methodNotAllowed(w, http.MethodDelete)
					return
				}
				cfg.Sessions.RemoveParticipant(w, r, userID)
			default:
				http.NotFound(w, r)
			}
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
