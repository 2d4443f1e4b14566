package router

import (
	"context"
	"errors"
	"math/rand"
	"net/http"

	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/config"
	"usedplus-economy/internal/host"
	"usedplus-economy/internal/infrastructure/database"
	adminhandler "usedplus-economy/internal/interfaces/handlers/admin"
	credithandler "usedplus-economy/internal/interfaces/handlers/credit"
	financehandler "usedplus-economy/internal/interfaces/handlers/finance"
	healthhandler "usedplus-economy/internal/interfaces/handlers/health"
	listhandler "usedplus-economy/internal/interfaces/handlers/listings"
	notifyhandler "usedplus-economy/internal/interfaces/handlers/notifications"
	searchhandler "usedplus-economy/internal/interfaces/handlers/searches"
	settingshandler "usedplus-economy/internal/interfaces/handlers/settings"
	tradehandler "usedplus-economy/internal/interfaces/handlers/tradein"
	"usedplus-economy/internal/middleware"
	"usedplus-economy/internal/session"
	"usedplus-economy/internal/transport"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Stack is everything CreateApp opened. Close releases it in reverse order.
type Stack struct {
	DB      *gorm.DB
	Rdb     *redis.Client
	Session *session.Session

	embedded *miniredis.Miniredis
	sub      *transport.Subscription
}

func (s *Stack) Close() {
	if s.Session != nil {
		s.Session.Close()
	}
	if s.sub != nil {
		_ = s.sub.Close()
	}
	if s.Rdb != nil {
		_ = s.Rdb.Close()
	}
	if s.embedded != nil {
		s.embedded.Close()
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// openRedis connects to REDIS_URL, or starts an in-process redis when none is
// configured outside production.
func openRedis(ctx context.Context, cfg *config.Config, st *Stack) error {
	if cfg.RedisURL == "" {
		if cfg.IsProduction() {
			return errors.New("REDIS_URL is required in production")
		}
		mr, err := miniredis.Run()
		if err != nil {
			return err
		}
		st.embedded = mr
		st.Rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		log.Warn().Str("addr", mr.Addr()).Msg("REDIS_URL not set, using embedded redis")
		return nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}
	st.Rdb = redis.NewClient(opt)
	return st.Rdb.Ping(ctx).Err()
}

func newSession(ctx context.Context, cfg *config.Config, st *Stack) (*session.Session, error) {
	mgr, err := settings.NewManager(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}
	catalog, err := host.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	farms := host.NewMemoryFarms()
	for _, id := range cfg.SeedFarms {
		farms.AddFarm(id, cfg.StartingBalance)
	}
	vehicles := host.NewMemoryVehicles()

	deps := session.Deps{
		Authoritative: cfg.Authoritative(),
		DB:            st.DB,
		Settings:      mgr,
		Farms:         farms,
		Catalog:       catalog,
		Clock:         host.NewManualClock(1, 0),
		Notifier:      host.NewLogNotifier(),
		Spawner:       &host.MemorySpawner{Vehicles: vehicles},
		Vehicles:      vehicles,
		Broker:        transport.NewRedisBroker(st.Rdb, cfg.RedisChannel),
		SaveSlot:      cfg.SaveSlot,
		TickInterval:  cfg.TickInterval,
	}
	if cfg.RNGSeed != 0 {
		deps.Rand = rand.New(rand.NewSource(cfg.RNGSeed))
	}
	if !cfg.Authoritative() {
		sub, err := transport.NewRedisBroker(st.Rdb, cfg.RedisChannel).Subscribe(ctx)
		if err != nil {
			return nil, err
		}
		st.sub = sub
		deps.Events = sub.Events()
	}
	return session.New(deps)
}

// CreateApp opens storage, builds the session and mounts every route. The
// caller runs Stack.Session and closes the Stack.
func CreateApp(cfg *config.Config) (*fiber.App, *Stack, error) {
	ctx := context.Background()
	st := &Stack{}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	st.DB = db
	if err := database.AutoMigrate(db); err != nil {
		st.Close()
		return nil, nil, err
	}
	if err := openRedis(ctx, cfg, st); err != nil {
		st.Close()
		return nil, nil, err
	}
	sess, err := newSession(ctx, cfg, st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	st.Session = sess

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
		AllowLocal:    !cfg.IsProduction(),
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.HealthMarker(st.Rdb))
	app.Use(middleware.Actor(cfg.AdminKeyHash))

	hh := &healthhandler.Handlers{
		Rdb:            st.Rdb,
		DB:             &gormDBPinger{db: db},
		Session:        sess,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/health", hh.Live)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/health/reset", hh.Reset)

	api := app.Group("/api/v1")
	farm := middleware.RequireFarm()

	sh := &searchhandler.Handlers{Session: sess}
	sh.Register(api.Group("/searches", farm))

	lh := &listhandler.Handlers{Session: sess}
	lh.Register(api.Group("/listings", farm))

	fh := &financehandler.Handlers{Session: sess}
	fh.Register(api.Group("/finance", farm))

	th := &tradehandler.Handlers{Session: sess}
	th.Register(api.Group("/tradein", farm))

	ch := &credithandler.Handlers{Session: sess}
	api.Get("/credit", farm, ch.Report)

	nh := &notifyhandler.Handlers{Session: sess}
	api.Get("/notifications", farm, nh.Drain)

	seth := &settingshandler.Handlers{Session: sess}
	seth.Register(api.Group("/settings"))

	ah := &adminhandler.Handlers{Session: sess}
	ah.Register(api.Group("/session"), middleware.RequireAdmin())

	return app, st, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
