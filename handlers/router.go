package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"muhasabahAPI/internal/user"
	"muhasabahAPI/middleware"
)

// Routes bundles everything the HTTP surface needs.
type Routes struct {
	Users         *UserHandler
	Sittings      *SittingHandler
	Todos         *TodoHandler
	CheckIns      *CheckInHandler
	Swot          *SwotHandler
	Comments      *CommentHandler
	Notifications *NotificationHandler
	Navigation    *NavigationHandler
	Dashboard     *DashboardHandler

	Auth        *middleware.Authenticator
	Limiter     *middleware.RateLimiter
	Metrics     http.Handler
	MetricsUser string
	MetricsPass string
	Ping        func(ctx context.Context) error
	Log         *zap.Logger
}

func restrict(fn http.HandlerFunc, roles ...user.Role) http.Handler {
	return middleware.RequireRoles(roles...)(fn)
}

func (rt *Routes) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Monitor(rt.Log))

	if rt.Metrics != nil {
		r.Handle("/metrics", middleware.BasicAuth(rt.MetricsUser, rt.MetricsPass)(rt.Metrics)).Methods("GET")
	}
	r.HandleFunc("/health", rt.health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// ---------------------------------------------------------------------
	// ACCOUNTS
	// ---------------------------------------------------------------------
	accounts := api.PathPrefix("/accounts").Subrouter()
	if rt.Limiter != nil {
		accounts.Use(rt.Limiter.Middleware)
	}
	accounts.HandleFunc("/register", rt.Users.Register).Methods("POST")
	accounts.HandleFunc("/verify-email/{token}", rt.Users.VerifyEmail).Methods("GET")
	accounts.HandleFunc("/resend-verification", rt.Users.ResendVerification).Methods("POST")
	accounts.HandleFunc("/token", rt.Users.Login).Methods("POST")
	accounts.HandleFunc("/token/refresh", rt.Users.Refresh).Methods("POST")
	accounts.HandleFunc("/password-reset", rt.Users.RequestPasswordReset).Methods("POST")
	accounts.HandleFunc("/password-reset-confirm/{token}", rt.Users.ConfirmPasswordReset).Methods("POST")

	session := accounts.PathPrefix("").Subrouter()
	session.Use(rt.Auth.RequireAuth)
	session.HandleFunc("/logout", rt.Users.Logout).Methods("POST")
	session.HandleFunc("/me", rt.Users.Me).Methods("GET")
	session.HandleFunc("/profile", rt.Users.GetProfile).Methods("GET")
	session.HandleFunc("/profile", rt.Users.UpdateProfile).Methods("PUT")
	session.HandleFunc("/permissions", rt.Users.Permissions).Methods("GET")
	session.Handle("/users", restrict(rt.Users.ListUsers, user.RoleAdministrator)).Methods("GET")
	session.Handle("/users/{id}/role", restrict(rt.Users.SetRole, user.RoleAdministrator)).Methods("PUT")

	// ---------------------------------------------------------------------
	// PROTECTED RESOURCES
	// ---------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(rt.Auth.RequireAuth)

	sittings := protected.PathPrefix("/sittings").Subrouter()
	sittings.HandleFunc("/sittings", rt.Sittings.ListSittings).Methods("GET")
	sittings.HandleFunc("/sittings", rt.Sittings.CreateSitting).Methods("POST")
	sittings.HandleFunc("/sittings/{id}", rt.Sittings.GetSitting).Methods("GET")
	sittings.HandleFunc("/sittings/{id}", rt.Sittings.UpdateSitting).Methods("PUT")
	sittings.HandleFunc("/sittings/{id}", rt.Sittings.DeleteSitting).Methods("DELETE")
	sittings.HandleFunc("/memberships", rt.Sittings.ListMemberships).Methods("GET")
	sittings.HandleFunc("/memberships", rt.Sittings.RequestJoin).Methods("POST")
	sittings.HandleFunc("/memberships/{id}", rt.Sittings.GetMembership).Methods("GET")
	sittings.HandleFunc("/memberships/{id}", rt.Sittings.DeleteMembership).Methods("DELETE")
	sittings.HandleFunc("/memberships/{id}/status", rt.Sittings.SetMembershipStatus).Methods("PUT")

	evaluations := sittings.PathPrefix("/evaluations").Subrouter()
	evaluations.Use(middleware.RequireRoles(user.RoleGroupLeader, user.RoleCoordinator, user.RoleAdministrator))
	evaluations.HandleFunc("", rt.Sittings.ListEvaluations).Methods("GET")
	evaluations.HandleFunc("", rt.Sittings.CreateEvaluation).Methods("POST")
	evaluations.HandleFunc("/{id}", rt.Sittings.GetEvaluation).Methods("GET")
	evaluations.HandleFunc("/{id}", rt.Sittings.UpdateEvaluation).Methods("PUT")
	evaluations.HandleFunc("/{id}", rt.Sittings.DeleteEvaluation).Methods("DELETE")

	todos := protected.PathPrefix("/todos").Subrouter()
	todos.HandleFunc("/defaults", rt.Todos.ListDefaults).Methods("GET")
	todos.Handle("/defaults", restrict(rt.Todos.CreateDefault, user.RoleCoordinator, user.RoleAdministrator)).Methods("POST")
	todos.HandleFunc("/defaults/{id}", rt.Todos.GetDefault).Methods("GET")
	todos.Handle("/defaults/{id}", restrict(rt.Todos.UpdateDefault, user.RoleCoordinator, user.RoleAdministrator)).Methods("PUT")
	todos.Handle("/defaults/{id}", restrict(rt.Todos.DeleteDefault, user.RoleCoordinator, user.RoleAdministrator)).Methods("DELETE")
	todos.HandleFunc("/personals", rt.Todos.ListPersonal).Methods("GET")
	todos.HandleFunc("/personals", rt.Todos.CreatePersonal).Methods("POST")
	todos.HandleFunc("/personals/{id}", rt.Todos.GetPersonal).Methods("GET")
	todos.HandleFunc("/personals/{id}", rt.Todos.UpdatePersonal).Methods("PUT")
	todos.HandleFunc("/personals/{id}", rt.Todos.DeletePersonal).Methods("DELETE")

	protected.HandleFunc("/checkins/checkins", rt.CheckIns.List).Methods("GET")
	protected.HandleFunc("/checkins/checkins", rt.CheckIns.Create).Methods("POST")
	protected.HandleFunc("/checkins/checkins/{id}", rt.CheckIns.Get).Methods("GET")
	protected.HandleFunc("/checkins/checkins/{id}", rt.CheckIns.Update).Methods("PUT")
	protected.HandleFunc("/checkins/checkins/{id}", rt.CheckIns.Delete).Methods("DELETE")

	protected.HandleFunc("/swot/swot", rt.Swot.List).Methods("GET")
	protected.HandleFunc("/swot/swot", rt.Swot.Create).Methods("POST")
	protected.HandleFunc("/swot/swot/{id}", rt.Swot.Get).Methods("GET")
	protected.HandleFunc("/swot/swot/{id}", rt.Swot.Update).Methods("PUT")

	protected.HandleFunc("/comments", rt.Comments.List).Methods("GET")
	protected.HandleFunc("/comments", rt.Comments.Create).Methods("POST")
	protected.HandleFunc("/comments/recent", rt.Comments.Recent).Methods("GET")

	protected.HandleFunc("/notification", rt.Notifications.GetNotifications).Methods("GET")
	protected.HandleFunc("/notification/devices", rt.Notifications.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notification/{id}/read", rt.Notifications.MarkAsRead).Methods("POST")

	protected.HandleFunc("/navigation/menu", rt.Navigation.Menu).Methods("GET")
	items := protected.PathPrefix("/navigation/items").Subrouter()
	items.Use(middleware.RequireRoles(user.RoleAdministrator))
	items.HandleFunc("", rt.Navigation.ListItems).Methods("GET")
	items.HandleFunc("", rt.Navigation.CreateItem).Methods("POST")
	items.HandleFunc("/{id}", rt.Navigation.UpdateItem).Methods("PUT")
	items.HandleFunc("/{id}", rt.Navigation.DeleteItem).Methods("DELETE")

	protected.HandleFunc("/dashboard/summary", rt.Dashboard.Summary).Methods("GET")

	return r
}

func (rt *Routes) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if rt.Ping != nil {
		if err := rt.Ping(ctx); err != nil {
			rt.Log.Warn("health check failed", zap.Error(err))
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "muhasabah-api"})
}
