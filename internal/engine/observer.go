package engine

import "time"

// RunInfo описывает run для наблюдателей.
type RunInfo struct {
	// ID — порядковый номер run в рамках планировщика.
	ID uint64

	// Procedure — имя процедуры (пусто для анонимных Run).
	Procedure string

	// Depth — глубина вложенности (0 для run верхнего уровня).
	Depth int
}

// Observer получает события жизненного цикла run.
//
// Сам планировщик ничего не логирует: логирование и метрики подключаются
// через Observer (см. telemetry.LogObserver, metrics.Observer).
// Методы вызываются из горутин run и должны быть потокобезопасны.
type Observer interface {
	// RunStarted вызывается после успешного создания последовательности.
	RunStarted(info RunInfo)

	// StepYielded вызывается, когда процедура приостановилась на шаге step.
	StepYielded(info RunInfo, step int, y Yield)

	// RunFinished вызывается один раз при завершении run. err == nil — успех.
	RunFinished(info RunInfo, err error, elapsed time.Duration)
}

// NopObserver игнорирует все события.
type NopObserver struct{}

func (NopObserver) RunStarted(RunInfo)                        {}
func (NopObserver) StepYielded(RunInfo, int, Yield)           {}
func (NopObserver) RunFinished(RunInfo, error, time.Duration) {}

// Observers рассылает события нескольким наблюдателям по порядку.
type Observers []Observer

func (o Observers) RunStarted(info RunInfo) {
	for _, obs := range o {
		obs.RunStarted(info)
	}
}

func (o Observers) StepYielded(info RunInfo, step int, y Yield) {
	for _, obs := range o {
		obs.StepYielded(info, step, y)
	}
}

func (o Observers) RunFinished(info RunInfo, err error, elapsed time.Duration) {
	for _, obs := range o {
		obs.RunFinished(info, err, elapsed)
	}
}
