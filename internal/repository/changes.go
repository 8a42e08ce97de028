package repository

// ChangeKind identifies the kind of write that happened on the events table.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
	// ChangeReminderChanged is emitted in addition to ChangeUpdated when a
	// write modified reminder_time or reminder_enabled.
	ChangeReminderChanged ChangeKind = "reminderChanged"
)

// Change describes a single committed write.
type Change struct {
	Kind    ChangeKind
	EventID string
}

// ChangeListener receives change notifications synchronously after the
// write that produced them has committed.
type ChangeListener func(Change)
