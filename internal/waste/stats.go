package waste

// UserStats carries the denormalized per-user counters maintained
// alongside every mutating ledger operation. Collector and recycler
// fields share one record; unused fields stay zero.
type UserStats struct {
	// Collector side.
	TotalCollectedKg     uint64
	CollectedByStream    [NumStreams]uint64
	VerifiedCollections  uint64
	RejectedCollections  uint64
	PendingVerifications uint64
	TotalEarnings        uint64
	TotalCarbonOffset    uint64

	// Recycler side.
	CollectionsVerified uint64
	BatchesCreated      uint64
	BatchesCompleted    uint64
	InventoryByStream   [NumStreams]uint64
	ReservedByStream    [NumStreams]uint64
	SoldByStream        [NumStreams]uint64
	ActiveListings      uint64
	SalesVolume         uint64
}

// AvailableInventory is the processed-and-unlisted inventory for a stream.
// Reserved quantity returns only on listing cancellation; sold material is
// consumed and never becomes available again.
func (s UserStats) AvailableInventory(stream Stream) uint64 {
	inv := s.InventoryByStream[stream]
	res := s.ReservedByStream[stream]
	if res > inv {
		return 0
	}
	return inv - res
}

// PlatformStats carries the platform-wide counters.
type PlatformStats struct {
	TotalUsers        uint64
	ActiveCollectors  uint64
	ActiveRecyclers   uint64
	CorporatePartners uint64

	TotalCollections     uint64
	PendingVerifications uint64
	VerifiedCollections  uint64
	RejectedCollections  uint64
	TotalWeightKg        uint64
	CollectedByStream    [NumStreams]uint64

	TotalBatches      uint64
	ActiveBatches     uint64
	CompletedBatches  uint64
	ProcessedByStream [NumStreams]uint64

	TotalListings  uint64
	ActiveListings uint64

	TotalRewardsPaid  uint64
	TotalSalesVolume  uint64
	TotalCarbonOffset uint64
}
