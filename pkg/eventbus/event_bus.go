// Package eventbus dispatches domain events to handlers by function
// signature: a handler receives every event whose arguments it can accept.
package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoSubscribers        = errors.New("eventbus: no matching subscribers")
	ErrInvalidHandlerReturn = errors.New("eventbus: invalid handler return signature")
	ErrNotAFunc             = errors.New("eventbus: handler must be a function")
)

type EventBus interface {
	Publish(args ...any)
	// PublishE calls every matching handler and joins their errors.
	PublishE(args ...any) error
	Subscribe(handler any) error
	Unsubscribe(handler any)
	SubscribersCount() int
}

type bus struct {
	log *logrus.Logger

	mu       sync.RWMutex
	handlers []reflect.Value
}

func New(log *logrus.Logger) EventBus {
	return &bus{log: log}
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		param := t.In(i)
		if arg == nil {
			if param.Kind() != reflect.Interface && param.Kind() != reflect.Ptr {
				return false
			}
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(param) {
			return false
		}
	}
	return true
}

func (b *bus) Subscribe(handler any) error {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("%w: got %T", ErrNotAFunc, handler)
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, v)
	b.mu.Unlock()
	return nil
}

func (b *bus) Unsubscribe(handler any) {
	ptr := reflect.ValueOf(handler).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.handlers {
		if h.Pointer() == ptr {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

func (b *bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Publish is fire-and-forget: handler errors and panics are logged.
func (b *bus) Publish(args ...any) {
	if err := b.PublishE(args...); err != nil && b.log != nil {
		b.log.WithError(err).Warn("eventbus.Publish")
	}
}

func (b *bus) PublishE(args ...any) error {
	b.mu.RLock()
	handlers := make([]reflect.Value, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	handled := false
	var errs []error
	for _, h := range handlers {
		if !MatchSignature(h.Interface(), args) {
			continue
		}
		handled = true
		if err := call(h, argsFor(h, args)); err != nil {
			errs = append(errs, err)
		}
	}
	if !handled {
		return ErrNoSubscribers
	}
	return errors.Join(errs...)
}

// argsFor replaces untyped nil arguments with the zero value of the
// handler's parameter type.
func argsFor(h reflect.Value, args []any) []reflect.Value {
	out := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			out[i] = reflect.Zero(h.Type().In(i))
			continue
		}
		out[i] = reflect.ValueOf(arg)
	}
	return out
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func call(h reflect.Value, in []reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked: %v", h.Type(), r)
		}
	}()
	out := h.Call(in)
	switch {
	case len(out) == 0:
		return nil
	case len(out) > 1 || out[0].Type() != errorType:
		return fmt.Errorf("%w: handler %s", ErrInvalidHandlerReturn, h.Type())
	case out[0].IsNil():
		return nil
	default:
		return out[0].Interface().(error)
	}
}
