package service

import "time"

// SetReconcilerClock replaces the reconciler's notion of now.
func SetReconcilerClock(r CatalogReconciler, now func() time.Time) {
	r.(*catalogReconciler).now = now
}
