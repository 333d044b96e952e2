package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planner/internal/config"
	"planner/internal/mirror"
	"planner/internal/notify"
	"planner/internal/realtime"
	"planner/internal/repository"
	"planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	broker := realtime.NewBroker()
	stores := mirror.Stores{
		Folders:  repository.NewFolderRepository(db, broker),
		Tasks:    repository.NewTaskRepository(db, broker),
		Goals:    repository.NewGoalRepository(db, broker),
		Schedule: repository.NewScheduleRepository(db, broker),
	}

	m := mirror.New(cfg.OwnerID, stores)
	if err := m.Resync(ctx); err != nil {
		log.Fatalf("initial sync: %v", err)
	}

	// Local echoes and same-process writes flow straight from the broker
	// into the reconciler.
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go m.Consume(ctx, sub)

	// Serve our change feed to other sessions.
	if cfg.ListenAddr != "" {
		hub := realtime.NewHub()
		hubSub := broker.Subscribe()
		go hub.Run(ctx, hubSub)

		httpMux := http.NewServeMux()
		httpMux.HandleFunc("/ws", hub.ServeWS)
		srv := &http.Server{Addr: cfg.ListenAddr, Handler: httpMux}
		go func() {
			log.Printf("[info] change feed listening on %s", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[warn] feed server: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// Mirror another session's writes into our collections.
	if cfg.PeerURL != "" {
		feed, err := realtime.DialFeed(ctx, cfg.PeerURL)
		if err != nil {
			log.Fatalf("peer feed: %v", err)
		}
		peerEvents := make(chan realtime.Event, 256)
		go m.Consume(ctx, peerEvents)
		go func() {
			if err := feed.Run(ctx, peerEvents); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[warn] peer feed ended: %v", err)
			}
		}()
	}

	scheduler := service.NewSchedulerService(time.Local)
	if cfg.ResyncInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ResyncInterval, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := m.Resync(jobCtx); err != nil {
				log.Printf("[warn] periodic resync: %v", err)
			}
		}); err != nil {
			log.Fatalf("schedule resync: %v", err)
		}
	}

	if cfg.TelegramToken != "" {
		notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("notifier: %v", err)
		}
		reminders := service.NewReminderService(m)
		if _, err := scheduler.ScheduleDaily(cfg.ReminderTime, func() {
			if err := notifier.Send(reminders.DailyAgenda(time.Now())); err != nil {
				log.Printf("[warn] daily agenda: %v", err)
			}
		}); err != nil {
			log.Fatalf("schedule agenda: %v", err)
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Planner mirror started.")
	<-ctx.Done()
	log.Println("Shutdown complete.")
}
