package waste

// EventKind tags the event-log records emitted by every mutating ledger
// operation.
type EventKind uint8

const (
	EventUserRegistered EventKind = iota + 1
	EventUserVerified
	EventReputationUpdated
	EventCollectionCreated
	EventCollectionVerified
	EventCollectionRejected
	EventBatchCreated
	EventBatchCompleted
	EventBatchCancelled
	EventListingCreated
	EventListingPurchased
	EventListingCancelled
	EventRateUpdated
	EventContractFunded
)

func (k EventKind) String() string {
	switch k {
	case EventUserRegistered:
		return "user_registered"
	case EventUserVerified:
		return "user_verified"
	case EventReputationUpdated:
		return "reputation_updated"
	case EventCollectionCreated:
		return "collection_created"
	case EventCollectionVerified:
		return "collection_verified"
	case EventCollectionRejected:
		return "collection_rejected"
	case EventBatchCreated:
		return "batch_created"
	case EventBatchCompleted:
		return "batch_completed"
	case EventBatchCancelled:
		return "batch_cancelled"
	case EventListingCreated:
		return "listing_created"
	case EventListingPurchased:
		return "listing_purchased"
	case EventListingCancelled:
		return "listing_cancelled"
	case EventRateUpdated:
		return "rate_updated"
	case EventContractFunded:
		return "contract_funded"
	default:
		return "unknown"
	}
}

// Event is one append-only audit record. The aggregate counters are a pure
// fold over the event log; replaying all events from scratch must
// reproduce the live statistics exactly.
//
// Field use varies by kind: Amount carries weight or quantity, Value
// carries token amounts, Aux carries kind-specific extras (role at
// registration, new reputation, sold-out flag on purchases).
type Event struct {
	Seq     uint64
	Kind    EventKind
	Time    int64
	Actor   Address
	Subject Address
	Entity  uint64
	Stream  Stream
	Quality Quality
	Amount  uint64
	Value   uint64
	Carbon  uint64
	Aux     uint64

	// PrevDigest and Digest chain the log: Digest is the blake2b-256 of
	// the CBOR body with PrevDigest set and Digest zeroed.
	PrevDigest Hash
	Digest     Hash
}
