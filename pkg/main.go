package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	pkg "github.com/pollcast/pollcast/pkg/internal"
	"github.com/pollcast/pollcast/pkg/internal/cache"
	"github.com/pollcast/pollcast/pkg/internal/database"
	"github.com/pollcast/pollcast/pkg/internal/http"
	"github.com/pollcast/pollcast/pkg/internal/http/api"
	"github.com/pollcast/pollcast/pkg/internal/queue"
	"github.com/pollcast/pollcast/pkg/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" ____       _ _               _\n|  _ \\ ___ | | | ___ __ _ ___| |_\n| |_) / _ \\| | |/ __/ _` / __| __|\n|  __/ (_) | | | (_| (_| \\__ \\ |_\n|_|   \\___/|_|_|\\___\\__,_|___/\\__|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Pollcast"), pkg.AppVersion)
	fmt.Printf("The one-voter-one-vote polling service\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	db, err := database.NewSource()
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connecting to database.")
	}
	if err := database.RunMigration(db); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Read-side cache
	cacheStore, err := cache.NewStore()
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when setting up cache.")
	}

	// Wire services; every handle is owned here and injected downwards
	pollSrv := services.NewPollService(db, cacheStore)
	aggregator := services.NewAggregator(db, pollSrv)
	dispatcher := queue.NewDispatcher(
		aggregator,
		viper.GetInt("queue.buffer"),
		viper.GetInt("queue.workers"),
	)
	dispatcher.Start()

	userSrv := services.NewUserService(db)
	voteSrv := services.NewVoteService(db, dispatcher)

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", func() { services.DoAutoPollMaintenance(db) })
	quartz.Start()

	// Server
	server := http.NewServer(api.NewController(userSrv, pollSrv, voteSrv))
	go server.Listen()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	quartz.Stop()
	if err := server.Shutdown(); err != nil {
		log.Error().Err(err).Msg("An error occurred when shutting down server.")
	}
	dispatcher.Stop()
}
