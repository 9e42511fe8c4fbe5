package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/recipebox/recipebox/config"
	"github.com/recipebox/recipebox/database"
	"github.com/recipebox/recipebox/logger"
	"github.com/recipebox/recipebox/web"
	"github.com/recipebox/recipebox/web/service"

	"github.com/spf13/cobra"
)

func loadConfig(envFile string) (*config.Config, error) {
	if envFile == "" {
		return config.Load()
	}
	return config.Load(envFile)
}

func initLogger(cfg *config.Config) {
	level, err := logger.ParseLevel(string(cfg.GetLogLevel()))
	if err != nil {
		log.Fatal("unknown log level:", cfg.GetLogLevel())
	}
	logger.InitLogger(level, cfg.LogFolder)
}

func runWebServer(envFile string) {
	cfg, err := loadConfig(envFile)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%v %v", config.GetName(), config.GetVersion())
	initLogger(cfg)
	defer logger.CloseLogger()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := database.CloseDB(db); err != nil {
			logger.Warning("close db err:", err)
		}
	}()

	store := web.NewSessionStore(cfg, db)
	server := web.NewServer(cfg, db, store)
	err = server.Start()
	if err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			logger.Info("received SIGHUP, restarting web server")
			err := server.Stop()
			if err != nil {
				logger.Warning("stop server err:", err)
			}
			if newCfg, err := loadConfig(envFile); err != nil {
				logger.Warning("reload config err, keeping the previous one:", err)
			} else {
				cfg = newCfg
			}
			// sessions survive the restart; store settings apply on the next full start
			server = web.NewServer(cfg, db, store)
			err = server.Start()
			if err != nil {
				log.Println(err)
				return
			}
		default:
			logger.Info("received", sig, "shutting down")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

func migrateDb(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	initLogger(cfg)

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	fmt.Println("migration done")
	return database.CloseDB(db)
}

func createAdmin(envFile, username, password string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	initLogger(cfg)

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	user, err := service.NewUserService(db).CreateAdmin(username, password)
	if err != nil {
		return fmt.Errorf("create admin failed: %w", err)
	}
	fmt.Printf("admin %q is ready (id %d)\n", user.Username, user.Id)
	return nil
}

func main() {
	var envFile string

	var rootCmd = &cobra.Command{
		Use:   config.GetName(),
		Short: "Personal recipe manager web app",
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default .env when present)")

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer(envFile)
		},
	}

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrateDb(envFile)
		},
	}

	var adminCmd = &cobra.Command{
		Use:   "admin",
		Short: "Create an admin account or reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			return createAdmin(envFile, username, password)
		},
	}

	adminCmd.Flags().String("username", "admin", "admin username")
	adminCmd.Flags().String("password", "", "admin password")
	_ = adminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(runCmd, migrateCmd, adminCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
