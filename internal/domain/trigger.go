package domain

// Trigger — автоматический запуск процедуры по cron-выражению.
//
// Формат CronExpr: "минуты часы дни месяцы дни_недели", например:
//
//	"0 9 * * *"     — каждый день в 9:00
//	"*/5 * * * *"   — каждые 5 минут
//	"@every 30s"    — каждые 30 секунд
type Trigger struct {
	// Name — имя триггера для логов.
	Name string `yaml:"name" json:"name"`

	// CronExpr — cron-выражение.
	CronExpr string `yaml:"cron" json:"cron"`

	// Procedure — имя запускаемой процедуры.
	Procedure string `yaml:"procedure" json:"procedure"`

	// Args — аргументы, передаваемые в каждый запуск.
	Args []any `yaml:"args" json:"args,omitempty"`

	// Disabled — триггер не регистрируется.
	Disabled bool `yaml:"disabled" json:"disabled,omitempty"`
}
