// Package session owns the economy's runtime state and serialises every
// change through one loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"usedplus-economy/internal/application/credit"
	"usedplus-economy/internal/application/ledger"
	"usedplus-economy/internal/application/search"
	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/application/tradein"
	"usedplus-economy/internal/domain"
	"usedplus-economy/internal/host"
	"usedplus-economy/internal/reliability"
	"usedplus-economy/internal/savegame"
	"usedplus-economy/internal/transport"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrFollower = fmt.Errorf("session is a follower: %w", domain.ErrUnauthorized)
	ErrClosed   = errors.New("session closed")
)

const defaultTick = 2 * time.Second

// Clock is a host clock the session can advance.
type Clock interface {
	host.Clock
	AdvanceHour() bool
	SetTime(day, hour int)
}

// Vehicles is the owned-vehicle registry the trade-in and credit services
// share.
type Vehicles interface {
	tradein.Registry
	host.Assets
}

type Deps struct {
	Authoritative bool

	DB       *gorm.DB
	Settings *settings.Manager
	Farms    host.Farms
	Catalog  host.Catalog
	Clock    Clock
	Notifier host.Notifier
	Spawner  host.Spawner
	Vehicles Vehicles
	Broker   transport.Broker
	// Events feeds a follower's mirror.
	Events <-chan transport.Event

	SaveSlot     string
	TickInterval time.Duration
	Rand         *rand.Rand
	// Roller overrides the search success rolls.
	Roller search.Roller
}

type command struct {
	fn    func(ctx context.Context) (any, error)
	reply chan result
}

type result struct {
	value any
	err   error
}

type Session struct {
	authoritative bool

	clock    Clock
	farms    host.Farms
	notifier host.Notifier
	settings *settings.Manager
	search   *search.Manager
	audit    *search.AuditLog
	ledger   *ledger.Service
	credit   *credit.Service
	tradein  *tradein.Service
	store    *savegame.GormStore
	slot     string

	broker transport.Broker
	outbox *transport.Outbox
	mirror *transport.Mirror
	events <-chan transport.Event

	tick      time.Duration
	commands  chan command
	closed    chan struct{}
	closeOnce sync.Once
}

func New(d Deps) (*Session, error) {
	if d.DB == nil || d.Settings == nil || d.Farms == nil || d.Catalog == nil || d.Clock == nil || d.Vehicles == nil {
		return nil, errors.New("session needs a database, settings, farms, catalog, clock and vehicles")
	}
	rnd := d.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Session{
		authoritative: d.Authoritative,
		clock:         d.Clock,
		farms:         d.Farms,
		notifier:      d.Notifier,
		settings:      d.Settings,
		store:         &savegame.GormStore{DB: d.DB},
		slot:          d.SaveSlot,
		broker:        d.Broker,
		outbox:        &transport.Outbox{},
		events:        d.Events,
		tick:          d.TickInterval,
		commands:      make(chan command),
		closed:        make(chan struct{}),
	}
	if s.slot == "" {
		s.slot = "default"
	}
	if s.tick <= 0 {
		s.tick = defaultTick
	}
	if s.broker == nil {
		s.broker = transport.NewLoopback()
	}

	s.credit = &credit.Service{DB: d.DB, Farms: d.Farms, Assets: d.Vehicles, Settings: d.Settings}
	s.ledger = &ledger.Service{
		DB:        d.DB,
		Farms:     d.Farms,
		Clock:     d.Clock,
		Settings:  d.Settings,
		Credit:    s.credit,
		Publisher: s.outbox,
	}
	s.tradein = &tradein.Service{
		Vehicles: d.Vehicles,
		Deals:    s.ledger,
		Farms:    d.Farms,
		Catalog:  d.Catalog,
		Settings: d.Settings,
		Rand:     rnd,
	}
	s.audit = &search.AuditLog{DB: d.DB}

	m, err := search.New(search.Deps{
		Farms:       d.Farms,
		Catalog:     d.Catalog,
		Clock:       d.Clock,
		Settings:    d.Settings,
		Notifier:    d.Notifier,
		Spawner:     d.Spawner,
		Reliability: reliability.NewGenerator(rnd),
		Credit:      s.credit,
		Events:      s.audit,
		Publisher:   s.outbox,
		Roller:      d.Roller,
		Rand:        rnd,
	})
	if err != nil {
		return nil, err
	}
	s.search = m

	if s.authoritative {
		d.Settings.OnChange(func(values map[string]any) {
			s.outbox.Publish(transport.SettingsChanged{Values: values})
		})
	} else {
		s.mirror = transport.NewMirror()
		s.mirror.OnSettings = d.Settings.Replace
	}

	log.Info().Bool("authoritative", s.authoritative).Str("slot", s.slot).Dur("tick", s.tick).Msg("Session created")
	return s, nil
}

func (s *Session) Authoritative() bool { return s.authoritative }

// Mirror is the follower's read-only view; nil on the authoritative side.
func (s *Session) Mirror() *transport.Mirror { return s.mirror }

// Run drives the session until ctx is cancelled or Close is called. The
// authoritative side advances the clock one hour per tick and executes
// commands; a follower only applies broadcast events.
func (s *Session) Run(ctx context.Context) error {
	if !s.authoritative {
		return s.follow(ctx)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return nil
		case <-ticker.C:
			s.advance(ctx)
			s.flush(ctx)
		case cmd := <-s.commands:
			v, err := cmd.fn(ctx)
			s.flush(ctx)
			cmd.reply <- result{value: v, err: err}
		}
	}
}

func (s *Session) follow(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return nil
		case ev, ok := <-s.events:
			if !ok {
				return nil
			}
			s.mirror.Apply(ev)
		}
	}
}

// advance moves the clock one hour and runs the daily work when a new day
// starts: the search roll, deal payments and a credit refresh.
func (s *Session) advance(ctx context.Context) {
	s.clock.AdvanceHour()
	if !s.search.OnHourChanged() {
		return
	}
	if _, err := s.ledger.ProcessMonthlyPayments(ctx); err != nil {
		log.Error().Err(err).Int("day", s.clock.Day()).Msg("Monthly payments failed")
	}
	if err := s.credit.Refresh(ctx, s.farms.FarmIDs()); err != nil {
		log.Error().Err(err).Int("day", s.clock.Day()).Msg("Credit refresh failed")
	}
}

func (s *Session) flush(ctx context.Context) {
	if s.outbox.Len() == 0 {
		return
	}
	if err := s.outbox.Flush(ctx, s.broker); err != nil {
		log.Warn().Err(err).Msg("Events dropped")
	}
}

// Close stops Run. Commands submitted afterwards fail with ErrClosed.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		log.Info().Msg("Session closed")
	})
}

// exec runs fn on the session loop and waits for its result.
func (s *Session) exec(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	select {
	case <-s.closed:
		return nil, ErrClosed
	default:
	}
	cmd := command{fn: fn, reply: make(chan result, 1)}
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, ErrClosed
	}
	select {
	case r := <-cmd.reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func call[T any](ctx context.Context, s *Session, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := s.exec(ctx, func(ctx context.Context) (any, error) { return fn(ctx) })
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// mutate is call for commands that change state; followers are refused.
func mutate[T any](ctx context.Context, s *Session, fn func(ctx context.Context) (T, error)) (T, error) {
	if !s.authoritative {
		var zero T
		return zero, ErrFollower
	}
	return call(ctx, s, fn)
}
