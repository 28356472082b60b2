package common

// Meta keys persisted in the local meta table.
const (
	MetaInstallID       = "install_id"
	MetaOwnerToken      = "global_owner_token"
	MetaLegacyMigrated  = "legacy_users_migrated"
	MetaResultsFilePath = "results_file_path"
)

// Audit outcomes shared by the gate and the coordinator.
const (
	OutcomeSuccess             = "success"
	OutcomeDeniedExistingOwner = "denied_existing_owner"
	OutcomeDeniedLocked        = "denied_locked"
)

// FailureOutcome renders an outcome for a failed attempt.
func FailureOutcome(message string) string {
	return "failure:" + message
}
