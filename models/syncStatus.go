package models

import "fmt"

// SyncStatus tracks whether the latest create/update of a row has been
// propagated to the document replica. Rows always enter at CreatedPending;
// any mutation after the first sync moves the row back to UpdatedPending.
type SyncStatus string

const (
	SyncStatusCreatedPending SyncStatus = "CREATED_PENDING"
	SyncStatusCreatedSynced  SyncStatus = "CREATED_SYNCED"
	SyncStatusUpdatedPending SyncStatus = "UPDATED_PENDING"
	SyncStatusUpdatedSynced  SyncStatus = "UPDATED_SYNCED"
)

// ErrIllegalSyncTransition reports an attempted transition the table forbids.
// Schedulers treat it as a programming error, not a retryable condition.
type ErrIllegalSyncTransition struct {
	From SyncStatus
	To   SyncStatus
}

func (e *ErrIllegalSyncTransition) Error() string {
	return fmt.Sprintf("illegal sync transition %s -> %s", e.From, e.To)
}

// MarkCreatedSynced is legal only from CREATED_PENDING.
func (s SyncStatus) MarkCreatedSynced() (SyncStatus, error) {
	if s != SyncStatusCreatedPending {
		return s, &ErrIllegalSyncTransition{From: s, To: SyncStatusCreatedSynced}
	}
	return SyncStatusCreatedSynced, nil
}

// MarkUpdatedSynced is legal only from UPDATED_PENDING.
func (s SyncStatus) MarkUpdatedSynced() (SyncStatus, error) {
	if s != SyncStatusUpdatedPending {
		return s, &ErrIllegalSyncTransition{From: s, To: SyncStatusUpdatedSynced}
	}
	return SyncStatusUpdatedSynced, nil
}

// MarkUpdated is the side effect of every domain mutation: legal from any
// state, always lands on UPDATED_PENDING (even from CREATED_SYNCED).
func (s SyncStatus) MarkUpdated() SyncStatus {
	return SyncStatusUpdatedPending
}

// Synced resolves the pending state to its synced counterpart through the
// transition table. Calling it on an already-synced state is illegal.
func (s SyncStatus) Synced() (SyncStatus, error) {
	switch s {
	case SyncStatusCreatedPending:
		return s.MarkCreatedSynced()
	case SyncStatusUpdatedPending:
		return s.MarkUpdatedSynced()
	default:
		return s, &ErrIllegalSyncTransition{From: s, To: s}
	}
}

// IsPending reports whether the replica still owes this row a push.
func (s SyncStatus) IsPending() bool {
	return s == SyncStatusCreatedPending || s == SyncStatusUpdatedPending
}
