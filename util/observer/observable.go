package observer

import "slices"

type Observable[T any] struct {
	observers   []Observer[T]
	subscribers []chan T
	bufferSize  int
}

// NewObservable creates a new Observable instance. bufferSize sizes the
// channels handed out by Subscribe, so NotifyObservers blocks only once a
// reader falls bufferSize notifications behind. SubscribeOnce channels
// hold one value.
func NewObservable[T any](bufferSize int) *Observable[T] {
	return &Observable[T]{
		observers:  make([]Observer[T], 0),
		bufferSize: bufferSize,
	}
}

// Subscribe returns a channel that receives every future notification.
func (o *Observable[T]) Subscribe() chan T {
	ch := make(chan T, o.bufferSize)
	o.subscribers = append(o.subscribers, ch)
	return ch
}

// SubscribeOnce returns a channel that receives exactly one future
// notification, then is never written to again.
func (o *Observable[T]) SubscribeOnce() chan T {
	ch := make(chan T, 1)
	wrapper := &onceChan[T]{ch: ch}
	o.ObserveOnce(wrapper)
	return ch
}

type onceChan[T any] struct {
	ch chan T
}

func (o *onceChan[T]) Update(data T) {
	o.ch <- data
}

// AddObserver adds an observer to the observable.
func (o *Observable[T]) AddObserver(observer Observer[T]) {
	o.observers = append(o.observers, observer)
}

// ObserveOnce adds an observer that will be notified only once.
// After the first notification, it will be removed automatically.
func (o *Observable[T]) ObserveOnce(observer Observer[T]) {
	wrapper := &onceObserver[T]{
		observable: o,
		observer:   observer,
	}
	o.observers = append(o.observers, wrapper)
}

// onceObserver is a wrapper that calls the original observer once and then removes itself
type onceObserver[T any] struct {
	observable *Observable[T]
	observer   Observer[T]
}

// Update calls the wrapped observer and then removes itself from the observable
func (o *onceObserver[T]) Update(data T) {
	o.observer.Update(data)
	o.observable.RemoveObserver(o)
}

// RemoveObserver removes an observer from the observable.
func (o *Observable[T]) RemoveObserver(observer Observer[T]) {
	for i, obs := range o.observers {
		if obs == observer {
			o.observers = slices.Delete(o.observers, i, i+1)
			return
		}
	}
}

// NotifyObservers notifies all observers and channel subscribers with the
// given data.
func (o *Observable[T]) NotifyObservers(data T) {
	// Iterate a copy: a once-observer removes itself during Update.
	for _, observer := range slices.Clone(o.observers) {
		observer.Update(data)
	}
	for _, ch := range o.subscribers {
		ch <- data
	}
}

// ClearObservers removes all observers and channel subscribers from the
// observable.
func (o *Observable[T]) ClearObservers() {
	o.observers = nil
	o.subscribers = nil
}
