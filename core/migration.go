package core

const MIGRATION_SERVICE = "migration"

type MigrationService interface {
	// Backfill copies every legacy account into the split stores. The job is
	// idempotent: rows that already exist are skipped, so it is safe to
	// re-run after a partial failure.
	Backfill() (*BackfillStats, error)

	// Verify compares row counts and field values between the legacy and
	// split representations. Any mismatch blocks cutover.
	Verify() (*MigrationReport, error)

	// Cutover switches reads to the split representation and stops
	// mirroring. Legacy rows are retained for rollback.
	Cutover() error

	// DualWriteEnabled reports whether writes are currently mirrored to the
	// legacy representation.
	DualWriteEnabled() bool

	Service
}

type BackfillStats struct {
	Accounts       int64
	Credentials    int64
	ExternalLogins int64
	Profiles       int64
	Preferences    int64
	Skipped        int64
}

type MigrationReport struct {
	LegacyCount  int64
	AccountCount int64
	Mismatches   []string
}

// Clean reports whether verification passed.
func (r *MigrationReport) Clean() bool {
	return len(r.Mismatches) == 0
}
