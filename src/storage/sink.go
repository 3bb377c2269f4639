package storage

import (
	"github.com/robfig/cron/v3"

	"signal-engine/src/interfaces"
	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// Sink subscribes to the session manager's events and writes them through
// the IDatabase. Writes run on their own goroutines and failures are logged
// and dropped: persistence must never stall or kill the signal path.
// -----------------------------------------------------------------------------

type Sink struct {
	DB     interfaces.IDatabase
	Logger *logger.Logger

	cron *cron.Cron
}

// -----------------------------------------------------------------------------

func NewSink(db interfaces.IDatabase, log *logger.Logger) *Sink {
	return &Sink{
		DB:     db,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// HandleSignal persists one emitted signal.
func (s *Sink) HandleSignal(session models.MSession, signal models.MSignalResult) {
	go func() {
		if err := s.DB.SaveSignal(signal); err != nil {
			s.Logger.Error("Signal write dropped for session %s: %v", session.ID, err)
			return
		}
		if err := s.DB.SaveSession(session); err != nil {
			s.Logger.Error("Session write dropped for %s: %v", session.ID, err)
		}
	}()
}

// -----------------------------------------------------------------------------

// HandleSessionChange persists a session lifecycle transition.
func (s *Sink) HandleSessionChange(session models.MSession) {
	go func() {
		if err := s.DB.SaveSession(session); err != nil {
			s.Logger.Error("Session write dropped for %s: %v", session.ID, err)
		}
	}()
}

// -----------------------------------------------------------------------------

// StartCleanupJob schedules the retention sweep on the given cron spec.
func (s *Sink) StartCleanupJob(spec string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.DB.CleanupOldData(); err != nil {
			s.Logger.Error("Retention cleanup failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.Logger.Info("Retention cleanup scheduled: %s", spec)
	return nil
}

// -----------------------------------------------------------------------------

// Stop halts the cleanup scheduler.
func (s *Sink) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
