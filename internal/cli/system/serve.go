package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/rehab/internal/affirmation"
	"github.com/julianstephens/rehab/internal/api"
	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/chat"
	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/coping"
	"github.com/julianstephens/rehab/internal/forum"
	"github.com/julianstephens/rehab/internal/llm"
	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/notifier"
	"github.com/julianstephens/rehab/internal/scheduler"
	"github.com/julianstephens/rehab/internal/tracker"
)

// ServeCmd runs the HTTP API together with the daily jobs
type ServeCmd struct {
	Addr        string  `help:"Listen address." env:"REHAB_ADDR"`
	RateLimit   float64 `help:"Generations per minute allowed per user." default:"6" env:"REHAB_RATE_LIMIT"`
	NoScheduler bool    `help:"Do not run the daily streak and affirmation jobs."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	issuer, err := auth.NewIssuer(auth.ResolveSecret())
	if err != nil {
		return fmt.Errorf("JWT secret not configured (set REHAB_JWT_SECRET or run 'rehab keyring set jwt'): %w", err)
	}
	gen, err := ctx.LLM()
	if err != nil {
		return err
	}
	if c.Addr == "" {
		c.Addr = constants.DefaultAddr
	}
	if c.RateLimit <= 0 {
		c.RateLimit = constants.GenerationRateLimit
	}
	if !logger.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := api.NewMetrics()
	limited := llm.NewRateLimited(gen, c.RateLimit, constants.GenerationBurst)
	cache := affirmation.New(nil)
	hook := notifier.FromEnv()
	if hook.Enabled() {
		logger.Info("Milestone webhook enabled")
	}

	tr := tracker.NewService(ctx.Store,
		tracker.WithNotifier(hook),
		tracker.WithAffirmations(cache),
		tracker.WithLogObserver(metrics.ObserveLog),
	)
	srv := api.NewServer(api.Deps{
		Store:   ctx.Store,
		Tracker: tr,
		Chat:    chat.NewService(ctx.Store, metrics.Instrument("chat", limited)),
		Forum:   forum.NewService(ctx.Store),
		Coping:  coping.NewSuggester(metrics.Instrument("coping", limited)),
		Issuer:  issuer,
		Metrics: metrics,
		Now:     ctx.Now,
	})

	if !c.NoScheduler {
		sched, err := scheduler.New(tr, cache, time.Local)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				logger.Warn("Scheduler shutdown failed", "error", err)
			}
		}()
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("rehab %s listening on %s\n", constants.Version, c.Addr)
	return srv.Run(runCtx, c.Addr)
}

// TokenCmd issues a bearer token for the local identity
type TokenCmd struct {
	TTL time.Duration `help:"How long the token is valid." default:"720h"`
}

func (c *TokenCmd) Run(ctx *cli.Context) error {
	issuer, err := auth.NewIssuer(auth.ResolveSecret())
	if err != nil {
		return fmt.Errorf("JWT secret not configured (set REHAB_JWT_SECRET or run 'rehab keyring set jwt'): %w", err)
	}
	if c.TTL <= 0 {
		c.TTL = constants.DefaultTokenTTL
	}
	token, err := issuer.Issue(ctx.Identity, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
