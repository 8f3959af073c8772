package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/kioku/internal/database"
)

// Notifier delivers due-review reminders.
type Notifier interface {
	SendReminder(userID int64, dueCount int) error
}

// Scheduler runs the background jobs: hourly reminder sweeps and daily
// housekeeping. Reminders fire in each user's local hour, so the sweep runs
// every hour and matches users whose configured hour is current in their
// timezone.
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	users     *database.UserRepository
	schedules *database.ScheduleRepository
	history   *database.HistoryRepository
}

// New creates a scheduler instance.
func New(notifier Notifier, users *database.UserRepository, schedules *database.ScheduleRepository, history *database.HistoryRepository) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
		users:     users,
		schedules: schedules,
		history:   history,
	}
}

// Start begins running all scheduled tasks in the background.
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Hour().Do(s.checkAndSendReminders)
	s.scheduler.Every(1).Day().At("03:00").Do(s.pruneDrawLedger)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkAndSendReminders finds users whose notification hour is now in their
// local timezone and reminds them how many items are waiting.
func (s *Scheduler) checkAndSendReminders() {
	ctx := context.Background()
	now := time.Now()

	users, err := s.users.GetAll(ctx)
	if err != nil {
		log.Printf("Error getting users for notification: %v", err)
		return
	}

	for _, user := range users {
		if !user.NotificationEnabled {
			continue
		}
		if now.In(user.Location()).Hour() != user.NotificationHour {
			continue
		}

		count, err := s.schedules.CountDue(ctx, user.ID, now)
		if err != nil {
			log.Printf("Error counting due items for user %d: %v", user.ID, err)
			continue
		}
		if count == 0 {
			continue
		}
		if err := s.notifier.SendReminder(user.ID, count); err != nil {
			log.Printf("Error sending reminder to user %d: %v", user.ID, err)
		}
	}
}

// pruneDrawLedger drops draw rows more than a week old. Budgets reset by day
// key at local midnight; old rows only accumulate.
func (s *Scheduler) pruneDrawLedger() {
	cutoff := time.Now().AddDate(0, 0, -7)
	if err := s.history.PruneDraws(context.Background(), cutoff); err != nil {
		log.Printf("Error pruning draw ledger: %v", err)
	}
}

// RunManualCheck forces a reminder check for a specific user.
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	count, err := s.schedules.CountDue(ctx, user.ID, time.Now())
	if err != nil {
		return err
	}
	if count > 0 {
		return s.notifier.SendReminder(user.ID, count)
	}
	return nil
}
