package waste

import (
	"errors"
	"fmt"
)

// Role is the permanent capability assigned to a user at registration.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleCollector
	RoleRecycler
	RoleCorporatePartner
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleCollector:
		return "collector"
	case RoleRecycler:
		return "recycler"
	case RoleCorporatePartner:
		return "corporate_partner"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch s {
	case "collector":
		return RoleCollector, nil
	case "recycler":
		return RoleRecycler, nil
	case "corporate_partner":
		return RoleCorporatePartner, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Stream is the category of collected material.
type Stream uint8

const (
	StreamPlastic Stream = iota
	StreamEWaste
	StreamMetal
	StreamGeneral

	NumStreams = 4
)

func (s Stream) Valid() bool {
	return s < NumStreams
}

func (s Stream) String() string {
	switch s {
	case StreamPlastic:
		return "plastic"
	case StreamEWaste:
		return "ewaste"
	case StreamMetal:
		return "metal"
	case StreamGeneral:
		return "general"
	default:
		return "invalid"
	}
}

var ErrUnknownStream = errors.New("unknown waste stream")

func ParseStream(s string) (Stream, error) {
	switch s {
	case "plastic":
		return StreamPlastic, nil
	case "ewaste":
		return StreamEWaste, nil
	case "metal":
		return StreamMetal, nil
	case "general":
		return StreamGeneral, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStream, s)
	}
}

// Quality is the tiered grade assigned at verification and processing.
type Quality uint8

const (
	QualityLow Quality = iota
	QualityMedium
	QualityHigh
	QualityPremium

	NumQualities = 4
)

func (q Quality) Valid() bool {
	return q < NumQualities
}

func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	case QualityPremium:
		return "premium"
	default:
		return "invalid"
	}
}

var ErrUnknownQuality = errors.New("unknown quality grade")

func ParseQuality(s string) (Quality, error) {
	switch s {
	case "low":
		return QualityLow, nil
	case "medium":
		return QualityMedium, nil
	case "high":
		return QualityHigh, nil
	case "premium":
		return QualityPremium, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownQuality, s)
	}
}

// CollectionStatus is the verification state of a collection. Transitions
// are one-directional: PENDING to VERIFIED or REJECTED, VERIFIED to
// IN_PROGRESS when batched, IN_PROGRESS to COMPLETED when the batch
// completes. REJECTED and COMPLETED are terminal.
type CollectionStatus uint8

const (
	CollectionPending CollectionStatus = iota
	CollectionVerified
	CollectionRejected
	CollectionInProgress
	CollectionCompleted
)

func (s CollectionStatus) String() string {
	switch s {
	case CollectionPending:
		return "pending"
	case CollectionVerified:
		return "verified"
	case CollectionRejected:
		return "rejected"
	case CollectionInProgress:
		return "in_progress"
	case CollectionCompleted:
		return "completed"
	default:
		return "invalid"
	}
}

type BatchStatus uint8

const (
	BatchActive BatchStatus = iota
	BatchCompleted
	BatchCancelled
)

func (s BatchStatus) String() string {
	switch s {
	case BatchActive:
		return "active"
	case BatchCompleted:
		return "completed"
	case BatchCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

type ListingStatus uint8

const (
	ListingActive ListingStatus = iota
	ListingSold
	ListingCancelled
)

func (s ListingStatus) String() string {
	switch s {
	case ListingActive:
		return "active"
	case ListingSold:
		return "sold"
	case ListingCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

const (
	MinReputation     = 0
	MaxReputation     = 1000
	InitialReputation = 500
)

// User is a registered participant. Roles are permanent once assigned and
// user records are never destroyed.
type User struct {
	Address      Address
	Role         Role
	Name         string
	Location     string
	Contact      string
	Verified     bool
	Reputation   uint16
	RegisteredAt int64
}

// Collection is a single reported unit of gathered waste. Immutable once
// COMPLETED except for the Processed flag set by the processing ledger.
type Collection struct {
	ID           uint64
	Collector    Address
	Stream       Stream
	WeightKg     uint64
	Location     string
	ImageHash    Hash
	Status       CollectionStatus
	Quality      Quality
	CreatedAt    int64
	PickupTime   int64
	Recycler     Address // zero until bound
	RewardAmount uint64
	CarbonOffset uint64
	Processed    bool
	BatchID      uint64 // zero while unbatched
}

// ProcessingBatch groups verified collections of one stream into a
// processing run owned by a recycler.
type ProcessingBatch struct {
	ID            uint64
	Recycler      Address
	Label         string
	Stream        Stream
	Inputs        []uint64
	InputWeightKg uint64
	Status        BatchStatus
	OutputWeight  uint64
	OutputQuality Quality
	CreatedAt     int64
	CompletedAt   int64
}

// Listing is a for-sale unit of processed material. Quantity is reserved
// against the recycler's inventory at creation, not at sale.
type Listing struct {
	ID           uint64
	Recycler     Address
	Stream       Stream
	Quantity     uint64
	Remaining    uint64
	PricePerUnit uint64
	Quality      Quality
	Description  string
	Status       ListingStatus
	CreatedAt    int64
}
