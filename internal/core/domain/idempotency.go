package domain

// CallbackKey builds the idempotency cache key for a provider callback.
// The same pair backs the partial unique index on the transaction log.
func CallbackKey(providerID, externalID string) string {
	return providerID + ":" + externalID
}
