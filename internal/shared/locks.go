package shared

import "fmt"

// SubmissionLockKey builds redis keys for the per-period upsert critical
// section. Root scopes independent deployments sharing one redis.
func SubmissionLockKey(root string, p Period) string {
	return fmt.Sprintf("ledger:%s:%s:lock", root, p)
}
