package main

import (
	"log"
	"net/http"

	"github.com/CrypticFlow/SmartExpense/internal/auth"
	"github.com/CrypticFlow/SmartExpense/internal/handlers"
	"github.com/CrypticFlow/SmartExpense/internal/models"
	"github.com/CrypticFlow/SmartExpense/internal/storage"
	"github.com/CrypticFlow/SmartExpense/internal/vision"

	"github.com/caarlos0/env/v11"
)

// config is loaded from environment variables.
type config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	DBPath       string `env:"DB_PATH" envDefault:"expenses.db"`
	TemplateDir  string `env:"TEMPLATE_DIR" envDefault:"web/templates"`
	StaticDir    string `env:"STATIC_DIR" envDefault:"web/static"`
	SecureCookie bool   `env:"SECURE_COOKIE" envDefault:"false"`
	OpenAIKey    string `env:"OPENAI_API_KEY"`

	// Optional first-run seed so a fresh deployment has a team admin.
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"Admin"`
	AdminTeam     string `env:"ADMIN_TEAM" envDefault:"My Team"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := seedAdmin(db, cfg); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	var scanner *vision.Client
	if cfg.OpenAIKey != "" {
		scanner = vision.NewClient(vision.Config{APIKey: cfg.OpenAIKey})
	} else {
		log.Printf("OPENAI_API_KEY not set, receipt scanning disabled")
	}

	h := handlers.NewHandlers(db, scanner, cfg.TemplateDir, cfg.SecureCookie)
	mux := setupRouter(h, cfg.StaticDir)

	log.Printf("Listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// seedAdmin bootstraps a team and its admin on an empty database when the
// ADMIN_* variables are set.
func seedAdmin(db *storage.DB, cfg config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	team, err := db.CreateTeam(cfg.AdminTeam)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	user, err := db.CreateUser(cfg.AdminName, cfg.AdminEmail, hash, models.RoleAdmin, team.ID)
	if err != nil {
		return err
	}

	log.Printf("Seeded team %q with admin %s", team.Name, user.Email)
	return db.SetTeamCreator(team.ID, user.ID)
}

func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/expenses", http.StatusFound)
	})

	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)

	mux.HandleFunc("GET /invite/{token}", h.InviteAcceptForm)
	mux.HandleFunc("POST /invite/{token}", h.InviteAccept)

	authed := func(fn http.HandlerFunc) http.Handler {
		return h.AuthMiddleware(fn)
	}

	mux.Handle("GET /expenses", authed(h.ListExpenses))
	mux.Handle("GET /expenses/new", authed(h.CreateExpenseForm))
	mux.Handle("POST /expenses", authed(h.CreateExpense))
	mux.Handle("POST /expenses/scan", authed(h.ScanReceipt))
	mux.Handle("POST /expenses/{id}/approve", authed(h.ApproveExpense))
	mux.Handle("POST /expenses/{id}/reject", authed(h.RejectExpense))

	mux.Handle("GET /budgets", authed(h.ListBudgets))
	mux.Handle("GET /budgets/new", authed(h.CreateBudgetForm))
	mux.Handle("POST /budgets", authed(h.CreateBudget))
	mux.Handle("POST /budgets/{id}/deactivate", authed(h.DeactivateBudget))
	mux.Handle("POST /alerts/{id}/read", authed(h.MarkAlertRead))

	mux.Handle("GET /team", authed(h.TeamPage))
	mux.Handle("POST /team/invite", authed(h.InviteMember))

	mux.Handle("GET /stats", authed(h.Statistics))

	return mux
}
