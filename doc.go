// Package querysync is the client-side data-synchronization layer of the
// back-office: a process-wide cache of query results keyed by semantic keys,
// with request de-duplication, generation-guarded result ordering and an
// explicit invalidation protocol driven by mutations.
//
// Components:
//   - Key / Pattern: canonical query identifiers and partial keys used to
//     match entries on invalidation.
//   - Client: owns the entry map. Queries subscribe to a key; mutations run
//     once and invalidate the patterns they declare.
//   - Persister: optional warm-start store (see package snapshot).
//
// Keys:
//
//	customers                    - aggregate list
//	customers{page=1,search="a"} - list with params
//	customer{id="42"}            - single record
//
// Flow:
//
//	obs, _ := querysync.Query(ctx, client, querysync.K("customer", querysync.P{"id": "42"}), fetch, onChange)
//	defer obs.Unsubscribe()
//	_, err := querysync.Mutate(ctx, client, updateCustomer, input) // invalidates customers + customer{id="42"}
//
// Every fetch carries a generation. A result is applied only while its
// generation is the entry's current one, so a slow superseded request never
// overwrites a newer result.
package querysync
