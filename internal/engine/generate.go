package engine

import (
	"iter"

	"github.com/shaiso/ndo/internal/future"
)

// Generate строит последовательность из обычного Go-тела.
//
// Тело вызывает yield в каждой точке приостановки. Если yield вернул false,
// run закончился (ошибкой или отменой) и тело должно вернуться.
// Ошибка, возвращённая телом, или паника становятся ошибкой run.
//
//	seq := engine.Generate(func(yield func(engine.Yield) bool) error {
//	    for i := 0; i < 5; i++ {
//	        if !yield(engine.Single(timer.AfterMillis(100))) {
//	            return nil
//	        }
//	    }
//	    return nil
//	})
func Generate(body func(yield func(Yield) bool) error) Sequence {
	g := &generator{}
	seq := func(yield func(Yield) bool) {
		g.err = body(yield)
	}
	g.next, g.stop = iter.Pull(iter.Seq[Yield](seq))
	return g
}

type generator struct {
	next func() (Yield, bool)
	stop func()
	err  error
}

func (g *generator) Advance() (y Yield, done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = future.PanicError(r)
		}
	}()

	y, ok := g.next()
	if ok {
		return y, false, nil
	}
	if g.err != nil {
		return Yield{}, false, g.err
	}
	return Yield{}, true, nil
}

// Stop разматывает приостановленное тело: текущий yield вернёт false.
func (g *generator) Stop() {
	defer func() {
		// паника тела при размотке уже не влияет на исход run
		_ = recover()
	}()
	g.stop()
}
