/*
buckets.go - Leave-type to balance-bucket resolution

PURPOSE:
  Maps a request to the bucket its charge debits. Leave requests go
  through an explicit name -> bucket table; WFH always charges the
  dedicated wfh bucket; expenses charge nothing.

WHY A TABLE, NOT KEYWORD MATCHING:
  Resolution used to be case-insensitive substring matching on the
  human-readable type name ("Earned Annual" contains "earned", so it
  charges earned). That silently produced no bucket for any new type.
  The table is validated when configuration loads, so an unmapped type
  fails fast at startup instead of producing a null bucket mid-
  transition. A type that still slips through (e.g. added directly in
  the database) is a MappingError and aborts the transition.

SEE ALSO:
  - config/config.go: loads and validates the table
  - engine.go: ResolveBucket call during transitions
*/
package leave

import "strings"

// =============================================================================
// BUCKET MAP
// =============================================================================

// BucketMap resolves a leave-type name to the bucket it charges.
// Keys are stored lower-cased; lookup is case-insensitive.
type BucketMap map[string]Bucket

// NewBucketMap normalizes keys and rejects unknown bucket tags.
func NewBucketMap(entries map[string]Bucket) (BucketMap, error) {
	known := make(map[Bucket]bool, len(Buckets()))
	for _, b := range Buckets() {
		known[b] = true
	}

	m := make(BucketMap, len(entries))
	for name, bucket := range entries {
		if !known[bucket] {
			return nil, &ValidationError{
				Field:  "bucket_map",
				Reason: "unknown bucket tag " + string(bucket) + " for leave type " + name,
			}
		}
		m[strings.ToLower(strings.TrimSpace(name))] = bucket
	}
	if len(m) == 0 {
		return nil, &ValidationError{Field: "bucket_map", Reason: "no leave types mapped"}
	}
	return m, nil
}

// DefaultBucketMap covers the fixed leave-type taxonomy.
func DefaultBucketMap() BucketMap {
	return BucketMap{
		"earned leave":   BucketEarned,
		"casual leave":   BucketEarned,
		"sick leave":     BucketSick,
		"personal leave": BucketPersonal,
		"vacation leave": BucketVacation,
	}
}

// Resolve returns the bucket for a leave-type name, or a MappingError
// if the name is not in the table.
func (m BucketMap) Resolve(typeName string) (Bucket, error) {
	bucket, ok := m[strings.ToLower(strings.TrimSpace(typeName))]
	if !ok {
		return "", &MappingError{LeaveTypeName: typeName}
	}
	return bucket, nil
}

// Validate checks that every given leave type resolves. Called at
// startup against the leave-type catalog so a configuration hole is
// found before any request can hit it.
func (m BucketMap) Validate(types []LeaveType) error {
	for _, lt := range types {
		if _, err := m.Resolve(lt.Name); err != nil {
			return err
		}
	}
	return nil
}

// BucketFor resolves the bucket a request charges. Expense requests
// charge no bucket and return ("", false, nil).
func (m BucketMap) BucketFor(r *Request, leaveTypeName string) (Bucket, bool, error) {
	switch r.Kind {
	case KindWFH:
		return BucketWFH, true, nil
	case KindExpense:
		return "", false, nil
	default:
		bucket, err := m.Resolve(leaveTypeName)
		if err != nil {
			return "", false, err
		}
		return bucket, true, nil
	}
}
