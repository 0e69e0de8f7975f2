package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cinehub/internal/events"
	"cinehub/internal/logger"
	"cinehub/internal/metrics"
	"cinehub/internal/ranking"
)

// Notifier receives domain events after a mutation has been saved.
type Notifier interface {
	Enqueue(e events.Event)
}

type nopNotifier struct{}

func (nopNotifier) Enqueue(events.Event) {}

// Deps are the collaborators shared by every service. Zero fields get
// working defaults.
type Deps struct {
	Ranker   *ranking.Ranker
	Notifier Notifier
	Metrics  *metrics.Metrics
	Log      *logrus.Entry
	Now      func() time.Time
	NewID    func() string
}

func (d Deps) withDefaults() Deps {
	if d.Ranker == nil {
		d.Ranker = ranking.New()
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewNop()
	}
	if d.Log == nil {
		d.Log = logger.Discard().Entry
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}
