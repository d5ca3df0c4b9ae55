package api

import (
	"github.com/africycle/africycle/internal/waste"
)

// Wire representations use string enums and hex addresses; the internal
// enums never cross the API boundary as raw integers.

type userResponse struct {
	Address      string `json:"address"`
	Role         string `json:"role"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Contact      string `json:"contact"`
	Verified     bool   `json:"verified"`
	Reputation   uint16 `json:"reputation"`
	RegisteredAt int64  `json:"registered_at"`
}

func toUserResponse(u waste.User) userResponse {
	return userResponse{
		Address:      u.Address.String(),
		Role:         u.Role.String(),
		Name:         u.Name,
		Location:     u.Location,
		Contact:      u.Contact,
		Verified:     u.Verified,
		Reputation:   u.Reputation,
		RegisteredAt: u.RegisteredAt,
	}
}

type collectionResponse struct {
	ID           uint64 `json:"id"`
	Collector    string `json:"collector"`
	Stream       string `json:"stream"`
	WeightKg     uint64 `json:"weight_kg"`
	Location     string `json:"location"`
	ImageHash    string `json:"image_hash"`
	Status       string `json:"status"`
	Quality      string `json:"quality,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	PickupTime   int64  `json:"pickup_time,omitempty"`
	Recycler     string `json:"recycler,omitempty"`
	RewardAmount uint64 `json:"reward_amount"`
	CarbonOffset uint64 `json:"carbon_offset"`
	Processed    bool   `json:"processed"`
	BatchID      uint64 `json:"batch_id,omitempty"`
}

func toCollectionResponse(c waste.Collection) collectionResponse {
	resp := collectionResponse{
		ID:           c.ID,
		Collector:    c.Collector.String(),
		Stream:       c.Stream.String(),
		WeightKg:     c.WeightKg,
		Location:     c.Location,
		ImageHash:    c.ImageHash.String(),
		Status:       c.Status.String(),
		CreatedAt:    c.CreatedAt,
		PickupTime:   c.PickupTime,
		RewardAmount: c.RewardAmount,
		CarbonOffset: c.CarbonOffset,
		Processed:    c.Processed,
		BatchID:      c.BatchID,
	}
	if c.Status != waste.CollectionPending && c.Status != waste.CollectionRejected {
		resp.Quality = c.Quality.String()
	}
	if !c.Recycler.IsZero() {
		resp.Recycler = c.Recycler.String()
	}
	return resp
}

type batchResponse struct {
	ID            uint64   `json:"id"`
	Recycler      string   `json:"recycler"`
	Label         string   `json:"label,omitempty"`
	Stream        string   `json:"stream"`
	Inputs        []uint64 `json:"inputs"`
	InputWeightKg uint64   `json:"input_weight_kg"`
	Status        string   `json:"status"`
	OutputWeight  uint64   `json:"output_weight"`
	OutputQuality string   `json:"output_quality,omitempty"`
	CreatedAt     int64    `json:"created_at"`
	CompletedAt   int64    `json:"completed_at,omitempty"`
}

func toBatchResponse(b waste.ProcessingBatch) batchResponse {
	resp := batchResponse{
		ID:            b.ID,
		Recycler:      b.Recycler.String(),
		Label:         b.Label,
		Stream:        b.Stream.String(),
		Inputs:        b.Inputs,
		InputWeightKg: b.InputWeightKg,
		Status:        b.Status.String(),
		OutputWeight:  b.OutputWeight,
		CreatedAt:     b.CreatedAt,
		CompletedAt:   b.CompletedAt,
	}
	if b.Status == waste.BatchCompleted {
		resp.OutputQuality = b.OutputQuality.String()
	}
	return resp
}

type listingResponse struct {
	ID           uint64 `json:"id"`
	Recycler     string `json:"recycler"`
	Stream       string `json:"stream"`
	Quantity     uint64 `json:"quantity"`
	Remaining    uint64 `json:"remaining"`
	PricePerUnit uint64 `json:"price_per_unit"`
	Quality      string `json:"quality"`
	Description  string `json:"description,omitempty"`
	Status       string `json:"status"`
	CreatedAt    int64  `json:"created_at"`
}

func toListingResponse(l waste.Listing) listingResponse {
	return listingResponse{
		ID:           l.ID,
		Recycler:     l.Recycler.String(),
		Stream:       l.Stream.String(),
		Quantity:     l.Quantity,
		Remaining:    l.Remaining,
		PricePerUnit: l.PricePerUnit,
		Quality:      l.Quality.String(),
		Description:  l.Description,
		Status:       l.Status.String(),
		CreatedAt:    l.CreatedAt,
	}
}

type userStatsResponse struct {
	TotalCollectedKg     uint64                    `json:"total_collected_kg"`
	CollectedByStream    [waste.NumStreams]uint64  `json:"collected_by_stream"`
	VerifiedCollections  uint64                    `json:"verified_collections"`
	RejectedCollections  uint64                    `json:"rejected_collections"`
	PendingVerifications uint64                    `json:"pending_verifications"`
	TotalEarnings        uint64                    `json:"total_earnings"`
	TotalCarbonOffset    uint64                    `json:"total_carbon_offset"`
	CollectionsVerified  uint64                    `json:"collections_verified"`
	BatchesCreated       uint64                    `json:"batches_created"`
	BatchesCompleted     uint64                    `json:"batches_completed"`
	InventoryByStream    [waste.NumStreams]uint64  `json:"inventory_by_stream"`
	ReservedByStream     [waste.NumStreams]uint64  `json:"reserved_by_stream"`
	SoldByStream         [waste.NumStreams]uint64  `json:"sold_by_stream"`
	ActiveListings       uint64                    `json:"active_listings"`
	SalesVolume          uint64                    `json:"sales_volume"`
	AvailableByStream    [waste.NumStreams]uint64  `json:"available_by_stream"`
}

func toUserStatsResponse(st waste.UserStats) userStatsResponse {
	resp := userStatsResponse{
		TotalCollectedKg:     st.TotalCollectedKg,
		CollectedByStream:    st.CollectedByStream,
		VerifiedCollections:  st.VerifiedCollections,
		RejectedCollections:  st.RejectedCollections,
		PendingVerifications: st.PendingVerifications,
		TotalEarnings:        st.TotalEarnings,
		TotalCarbonOffset:    st.TotalCarbonOffset,
		CollectionsVerified:  st.CollectionsVerified,
		BatchesCreated:       st.BatchesCreated,
		BatchesCompleted:     st.BatchesCompleted,
		InventoryByStream:    st.InventoryByStream,
		ReservedByStream:     st.ReservedByStream,
		SoldByStream:         st.SoldByStream,
		ActiveListings:       st.ActiveListings,
		SalesVolume:          st.SalesVolume,
	}
	for s := waste.Stream(0); s < waste.NumStreams; s++ {
		resp.AvailableByStream[s] = st.AvailableInventory(s)
	}
	return resp
}
