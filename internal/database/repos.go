package database

import "github.com/jmoiron/sqlx"

// Repos bundles the repositories over one database handle.
type Repos struct {
	Items     *ItemRepository
	Schedules *ScheduleRepository
	History   *HistoryRepository
	Users     *UserRepository
}

// NewRepos creates all repositories for a connection.
func NewRepos(db *sqlx.DB) *Repos {
	return &Repos{
		Items:     NewItemRepository(db),
		Schedules: NewScheduleRepository(db),
		History:   NewHistoryRepository(db),
		Users:     NewUserRepository(db),
	}
}
