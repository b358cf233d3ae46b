package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/nipisarev/mainote-bot/internal/config"
	"github.com/nipisarev/mainote-bot/internal/domain"
	"github.com/nipisarev/mainote-bot/internal/notion"
	"github.com/nipisarev/mainote-bot/internal/scheduler"
	"github.com/nipisarev/mainote-bot/internal/store"
	"github.com/nipisarev/mainote-bot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	notes   *notion.Client
	mux     *http.ServeMux
	httpSrv *http.Server
	updates chan tgbotapi.Update
	repo    store.Repo
	router  *telegram.Router
	sched   *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	if cfg.NotionKey == "" || cfg.NotionDB == "" {
		log.Warn("NOTION_API_KEY or NOTION_DATABASE_ID is empty, notes and morning plans will fail")
	}

	mux := http.NewServeMux()
	healthz := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/health", healthz)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		notes:   notion.New(cfg.NotionKey, cfg.NotionDB, log.Named("notion")),
		mux:     mux,
		httpSrv: srv,
		updates: make(chan tgbotapi.Update, 100),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting mainote-bot",
		zap.String("mode", a.cfg.RunMode),
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("bot", a.bot.Self.UserName),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	zones := &domain.TZDatabase{}
	sender := telegram.NewSender(a.bot, a.cfg.SendRate, a.log.Named("sender"))
	a.sched = scheduler.New(scheduler.Config{
		Enabled:           a.cfg.MorningEnabled,
		DefaultTime:       a.cfg.MorningTime,
		DefaultRecipients: a.cfg.NotifyChatIDs,
		SendConcurrency:   a.cfg.SendConcurrency,
	}, repo, a.notes, sender, zones, a.log.Named("scheduler"))
	a.router = telegram.NewRouter(a.bot, a.log.Named("telegram"), a.notes, repo, zones, a.sched)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.RunMode == "webhook" {
		a.mux.Handle("POST "+webhookPath, webhookHandler(a.bot, a.updates, a.log))
	}
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	updCh := a.startUpdates(ctx)
	a.sched.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// startUpdates returns the update source for the configured run mode.
func (a *App) startUpdates(ctx context.Context) tgbotapi.UpdatesChannel {
	if a.cfg.RunMode == "webhook" {
		url := webhookURL(a.cfg.WebhookURL)
		if err := setWebhook(ctx, a.bot, url, webhookRetryDelay, a.log); err != nil {
			a.log.Error("failed to set up webhook, continuing anyway", zap.Error(err))
		}
		return a.updates
	}

	// getUpdates is refused while a webhook is registered.
	if _, err := a.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		a.log.Warn("delete webhook failed", zap.Error(err))
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	return a.bot.GetUpdatesChan(u)
}

func (a *App) shutdown() {
	if a.cfg.RunMode != "webhook" {
		a.bot.StopReceivingUpdates()
	}

	// Create a short-lived shutdown context and cancel it immediately after use.
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	if a.repo != nil {
		_ = a.repo.Close()
	}
}
