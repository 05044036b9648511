package events

import (
	"context"
	"errors"
)

// Multi returns a Publisher that publishes every event to each of pubs in
// order. Nil publishers are skipped. Publish and Close join the errors of
// all publishers.
func Multi(pubs ...Publisher) Publisher {
	var m multiPublisher
	for _, p := range pubs {
		if p != nil {
			m = append(m, p)
		}
	}
	return m
}

type multiPublisher []Publisher

func (m multiPublisher) Publish(ctx context.Context, topic string, event any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
