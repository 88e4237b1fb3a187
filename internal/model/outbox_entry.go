package model

import (
	"database/sql"
	"strings"
	"time"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) String() string { return string(a) }

func (a Action) Valid() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

// ParseAction normalizes input. Returns (value, true) if valid.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	return a, a.Valid()
}

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntrySynced    EntryStatus = "synced"
	EntryAbandoned EntryStatus = "abandoned"
)

func (s EntryStatus) String() string { return string(s) }

// OutboxEntry is a row of the sync_status table: one pending mutation that
// must eventually reach the remote system. Written by domain services,
// mutated only by the sync driver.
type OutboxEntry struct {
	ID          string       `db:"id"` // ULID, lexicographically time-ordered
	EntityType  EntityType   `db:"entity_type"`
	EntityID    string       `db:"entity_id"`
	Action      Action       `db:"action"`
	Payload     []byte       `db:"payload"`
	Status      EntryStatus  `db:"status"`
	Attempts    int          `db:"attempts"`
	LastAttempt sql.NullTime `db:"last_attempt"`
	CreatedAt   time.Time    `db:"created_at"`
}
