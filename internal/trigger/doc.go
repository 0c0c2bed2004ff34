// Package trigger запускает процедуры по cron-выражениям.
//
// Каждый domain.Trigger регистрируется в robfig/cron как отдельная
// запись. При срабатывании процедура запускается через Starter
// (runner.Service) с источником cron. Триггер не ждёт завершения run:
// следующий тик запускает новый run, даже если предыдущий ещё идёт.
//
// Использование:
//
//	cron := trigger.New(trigger.Config{Starter: svc, Logger: logger})
//	for _, t := range cfg.Triggers {
//	    if _, err := cron.Add(t); err != nil { ... }
//	}
//	cron.Start()
//	defer cron.Stop(ctx)
package trigger
