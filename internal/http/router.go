package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires the handlers and middleware into one route table.
// Manager guards the endpoints only the cleaning manager may call; when nil
// those endpoints are open, which is intended only for tests.
type RouterConfig struct {
	Roster     *RosterHandler
	Schedules  *ScheduleHandler
	Templates  *TemplateHandler
	Users      *UserHandler
	Reports    *ReportHandler
	Manager    func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the service's route table.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	manager := cfg.Manager
	if manager == nil {
		manager = func(next http.Handler) http.Handler { return next }
	}

	if cfg.Schedules != nil || cfg.Roster != nil {
		createCleaning := manager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg.Schedules.Create(w, r)
		}))
		deleteCleaning := manager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg.Schedules.Delete(w, r)
		}))

		mux.HandleFunc("/cleanings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Schedules.List(w, r)
			case http.MethodPost:
				createCleaning.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/cleanings/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/cleanings/")
			id, action, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithInstanceID(r.Context(), id))

			switch action {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Schedules.Get(w, r)
				case http.MethodDelete:
					deleteCleaning.ServeHTTP(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case "join", "leave", "finish":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				switch action {
				case "join":
					cfg.Roster.Join(w, r)
				case "leave":
					cfg.Roster.Leave(w, r)
				case "finish":
					cfg.Roster.Finish(w, r)
				}
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Templates != nil {
		mux.Handle("/templates", manager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Templates.List(w, r)
			case http.MethodPost:
				cfg.Templates.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})))
		mux.Handle("/templates/", manager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/templates/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithTemplateID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Templates.Get(w, r)
			case http.MethodPut:
				cfg.Templates.Update(w, r)
			case http.MethodDelete:
				cfg.Templates.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})))
	}

	if cfg.Users != nil {
		mux.Handle("/users", manager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Users.List(w, r)
		})))
		mux.Handle("/users/sync", manager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Users.Sync(w, r)
		})))
	}

	if cfg.Roster != nil {
		mux.Handle("/lock", manager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Roster.GetLock(w, r)
			case http.MethodPost:
				cfg.Roster.SetLock(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})))
	}

	if cfg.Reports != nil {
		mux.Handle("/reports/users", manager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Reports.Users(w, r)
		})))
		mux.Handle("/reports/templates", manager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Reports.Templates(w, r)
		})))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		handler = cfg.Middleware[i](handler)
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
