package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/ndo/internal/domain"
)

// ErrDuplicateTrigger — триггер с таким именем уже добавлен.
var ErrDuplicateTrigger = errors.New("duplicate trigger")

// Starter запускает run по имени процедуры.
type Starter interface {
	Start(ctx context.Context, name string, args []any, source string) (*domain.Run, error)
}

// Config — конфигурация Cron.
type Config struct {
	Starter Starter
	Logger  *slog.Logger

	// Location — часовой пояс выражений (по умолчанию time.Local).
	Location *time.Location
}

// Cron — набор cron триггеров поверх robfig/cron.
type Cron struct {
	starter Starter
	logger  *slog.Logger
	cron    *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// Entry — состояние зарегистрированного триггера.
type Entry struct {
	Trigger domain.Trigger
	Next    time.Time
	Prev    time.Time
}

// New создаёт Cron. Триггеры не срабатывают до вызова Start.
func New(cfg Config) *Cron {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cfg.Logger.With("component", "trigger")

	return &Cron{
		starter: cfg.Starter,
		logger:  logger,
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{logger: logger}),
			cron.WithChain(cron.Recover(cronLogger{logger: logger})),
		),
		entries: make(map[string]cron.EntryID),
	}
}

// Add регистрирует триггер. Выключенный триггер пропускается
// (возвращается нулевой EntryID без ошибки).
func (c *Cron) Add(t domain.Trigger) (cron.EntryID, error) {
	if t.Disabled {
		c.logger.Info("trigger disabled, skipping", "trigger", t.Name)
		return 0, nil
	}
	if t.Procedure == "" {
		return 0, fmt.Errorf("trigger %s: procedure is required", t.Name)
	}
	if t.Name == "" {
		t.Name = t.Procedure + "@" + t.CronExpr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[t.Name]; exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateTrigger, t.Name)
	}

	schedule, err := cronParser.Parse(t.CronExpr)
	if err != nil {
		return 0, fmt.Errorf("trigger %s: invalid cron expression %q: %w", t.Name, t.CronExpr, err)
	}

	id := c.cron.Schedule(schedule, job{cron: c, trigger: t})
	c.entries[t.Name] = id

	c.logger.Info("trigger registered",
		"trigger", t.Name,
		"cron", t.CronExpr,
		"procedure", t.Procedure,
	)
	return id, nil
}

// Remove снимает триггер по имени.
func (c *Cron) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, exists := c.entries[name]
	if !exists {
		return false
	}
	c.cron.Remove(id)
	delete(c.entries, name)
	return true
}

// Entries возвращает зарегистрированные триггеры в порядке ближайшего срабатывания.
func (c *Cron) Entries() []Entry {
	var out []Entry
	for _, e := range c.cron.Entries() {
		j, ok := e.Job.(job)
		if !ok {
			continue
		}
		out = append(out, Entry{Trigger: j.trigger, Next: e.Next, Prev: e.Prev})
	}
	return out
}

// Start запускает cron в собственной горутине.
func (c *Cron) Start() {
	c.cron.Start()
}

// Stop останавливает cron и ждёт завершения выполняющихся job'ов
// (сами run продолжают работать) или отмены ctx.
func (c *Cron) Stop(ctx context.Context) error {
	select {
	case <-c.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fire срабатывает триггер немедленно, вне расписания.
func (c *Cron) Fire(ctx context.Context, t domain.Trigger) (*domain.Run, error) {
	run, err := c.starter.Start(ctx, t.Procedure, t.Args, domain.RunSourceCron)
	if err != nil {
		c.logger.Error("trigger failed to start run",
			"trigger", t.Name,
			"procedure", t.Procedure,
			"error", err,
		)
		return nil, err
	}

	c.logger.Info("trigger started run",
		"trigger", t.Name,
		"procedure", t.Procedure,
		"run_id", run.ID,
	)
	return run, nil
}

// job — cron.Job одного триггера.
type job struct {
	cron    *Cron
	trigger domain.Trigger
}

func (j job) Run() {
	j.cron.Fire(context.Background(), j.trigger)
}
