package main

import (
	auth "SSPLab/internal/auth"
	config "SSPLab/internal/config"
	pipeline "SSPLab/internal/pipeline"
	profile "SSPLab/internal/profile"
	repo "SSPLab/internal/repo"
	report "SSPLab/internal/report"
	review "SSPLab/internal/review"
	stiffness "SSPLab/internal/stiffness"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"log"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

var wg sync.WaitGroup

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

func HandleList(mux *mux.Router, db *sql.DB, cfg *config.Config) {
	studyRepo := repo.NewPostgresDB(db)

	tokenKey := os.Getenv("TOKEN_KEY")
	if tokenKey == "" {
		log.Fatal("TOKEN_KEY environment variable is not set")
	}

	authEnv := &auth.Authenv{JWTkey: []byte(tokenKey), Repo: studyRepo}
	profileH := &profile.ProfileHandler{Repo: studyRepo}

	// The review surface works off the latest batch over the data folder.
	run, err := pipeline.Run(cfg.DataDir(), cfg.Groups, cfg.Analysis)
	if err != nil {
		log.Fatalf("Cannot analyze data folder: %v", err)
	}

	reviewH := &review.Handler{Cfg: cfg, Records: run.Records, Repo: studyRepo}
	stiffnessH := &stiffness.Handler{}
	reportH := &report.Handler{}

	limiter := auth.NewIPRateLimiter(1, 3)

	api := mux.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	api.HandleFunc("/login", authEnv.AuthHandler).Methods("POST")
	api.HandleFunc("/register", authEnv.RegisterHandler).Methods("POST")

	secureApi := api.PathPrefix("/user").Subrouter()
	secureApi.Use(authEnv.AuthMiddleware)

	secureApi.HandleFunc("/profile", profileH.GetProfile).Methods("GET")
	secureApi.HandleFunc("/profile", profileH.UpdateProfile).Methods("PATCH", "PUT")

	secureApi.HandleFunc("/samples", reviewH.ListSamples).Methods("GET")
	secureApi.HandleFunc("/samples/{filename}/curve", reviewH.GetCurve).Methods("GET")
	secureApi.HandleFunc("/stats", reviewH.GroupStats).Methods("GET")
	secureApi.HandleFunc("/manual-results", reviewH.SaveManualResult).Methods("POST")
	secureApi.HandleFunc("/manual-results", reviewH.ListManualResults).Methods("GET")

	secureApi.HandleFunc("/tools/stiffness/fit", stiffnessH.Fit).Methods("POST")
	secureApi.HandleFunc("/tools/report/pdf", reportH.Generate).Methods("POST")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	configPath := os.Getenv("SSP_CONFIG")
	if configPath == "" {
		configPath = config.DefaultFilename
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Cannot load configuration: %v", err)
	}

	db := auth.InitDB()
	defer db.Close()
	if err := repo.NewPostgresDB(db).EnsureSchema(ctx); err != nil {
		log.Fatalf("Schema error: %v", err)
	}

	mux := mux.NewRouter()
	log.Println("Starting server on :443")
	HandleList(mux, db, cfg)
	handler := CORS(mux)

	server := &http.Server{
		Addr:    ":443",
		Handler: handler,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServeTLS("server.crt", "server.key"); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	fmt.Println("Shutdown signal received!")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")

	wg.Wait()
}
