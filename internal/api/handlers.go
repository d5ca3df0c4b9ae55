package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/africycle/africycle/internal/ledger"
	"github.com/africycle/africycle/internal/metrics"
	"github.com/africycle/africycle/internal/waste"
)

// callerHeader carries the caller's account address, set by the
// authenticated gateway. The ledger's role checks remain the source of
// truth; a stale or spoofed role cache upstream cannot bypass them.
const callerHeader = "X-Africycle-Caller"

var errMissingCaller = fmt.Errorf("%w: missing %s header", ledger.ErrInvalidInput, callerHeader)

func caller(r *http.Request) (waste.Address, error) {
	raw := r.Header.Get(callerHeader)
	if raw == "" {
		return waste.Address{}, errMissingCaller
	}
	addr, err := waste.ParseAddress(raw)
	if err != nil {
		return waste.Address{}, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	return addr, nil
}

func pathAddress(r *http.Request) (waste.Address, error) {
	addr, err := waste.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		return waste.Address{}, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	return addr, nil
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed id", ledger.ErrInvalidInput)
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the ledger error taxonomy onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrUnauthorized),
		errors.Is(err, ledger.ErrNotOwner),
		errors.Is(err, ledger.ErrNotRegistered):
		code = http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyRegistered),
		errors.Is(err, ledger.ErrAlreadyVerified),
		errors.Is(err, ledger.ErrAlreadyCompleted),
		errors.Is(err, ledger.ErrAlreadySold),
		errors.Is(err, ledger.ErrInvalidTransition):
		code = http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidWeight),
		errors.Is(err, ledger.ErrInvalidRange),
		errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, ledger.ErrInsufficientInventory):
		code = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientContractBalance):
		code = http.StatusPaymentRequired
	default:
		s.log.Error().Err(err).Msg("internal error")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// Registry handlers

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Role     string `json:"role"`
		Name     string `json:"name"`
		Location string `json:"location"`
		Contact  string `json:"contact"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	role, err := waste.ParseRole(req.Role)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return
	}

	err = s.ledger.Register(addr, role, req.Name, req.Location, req.Contact)
	metrics.ObserveOperation("register", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"address": addr.String()})
}

func (s *Server) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.ledger.GetUserProfile(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) VerifyUser(w http.ResponseWriter, r *http.Request) {
	admin, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	err = s.ledger.VerifyUser(admin, addr)
	metrics.ObserveOperation("verify_user", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (s *Server) UpdateReputation(w http.ResponseWriter, r *http.Request) {
	admin, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Score  uint64 `json:"score"`
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	err = s.ledger.UpdateReputation(admin, addr, req.Score, req.Reason)
	metrics.ObserveOperation("update_reputation", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"reputation": req.Score})
}

func (s *Server) GetUserStats(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	stats, err := s.ledger.GetUserStats(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserStatsResponse(stats))
}

func (s *Server) GetCollectorStats(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	stats, err := s.ledger.GetCollectorStats(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserStatsResponse(stats))
}

func (s *Server) GetRecyclerStats(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	stats, err := s.ledger.GetRecyclerStats(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserStatsResponse(stats))
}

// Collection handlers

func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Stream     string `json:"stream"`
		WeightKg   uint64 `json:"weight_kg"`
		Location   string `json:"location"`
		ImageHash  string `json:"image_hash"`
		PickupTime int64  `json:"pickup_time"`
		Recycler   string `json:"recycler"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	stream, err := waste.ParseStream(req.Stream)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return
	}
	imageHash, err := waste.ParseHash(req.ImageHash)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return
	}
	recycler := waste.ZeroAddress
	if req.Recycler != "" {
		recycler, err = waste.ParseAddress(req.Recycler)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
			return
		}
	}

	id, err := s.ledger.CreateCollection(addr, stream, req.WeightKg, req.Location, imageHash, req.PickupTime, recycler)
	metrics.ObserveOperation("create_collection", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (s *Server) GetCollectionDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.ledger.GetCollectionDetails(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionResponse(c))
}

func (s *Server) VerifyCollection(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Accept  bool   `json:"accept"`
		Quality string `json:"quality"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	quality := waste.QualityLow
	if req.Accept {
		quality, err = waste.ParseQuality(req.Quality)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
			return
		}
	}

	err = s.ledger.VerifyCollection(addr, id, req.Accept, quality)
	metrics.ObserveOperation("verify_collection", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.ledger.GetCollectionDetails(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionResponse(c))
}

// Processing handlers

func (s *Server) CreateProcessingBatch(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		CollectionIDs []uint64 `json:"collection_ids"`
		Label         string   `json:"label"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	id, err := s.ledger.CreateProcessingBatch(addr, req.CollectionIDs, req.Label)
	metrics.ObserveOperation("create_processing_batch", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (s *Server) GetProcessingBatchDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	b, err := s.ledger.GetProcessingBatchDetails(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(b))
}

func (s *Server) CompleteProcessing(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		OutputWeight  uint64 `json:"output_weight"`
		OutputQuality string `json:"output_quality"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	quality, err := waste.ParseQuality(req.OutputQuality)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return
	}

	err = s.ledger.CompleteProcessing(addr, id, req.OutputWeight, quality)
	metrics.ObserveOperation("complete_processing", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	b, err := s.ledger.GetProcessingBatchDetails(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(b))
}

func (s *Server) CancelProcessingBatch(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	err = s.ledger.CancelProcessingBatch(addr, id)
	metrics.ObserveOperation("cancel_processing_batch", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": waste.BatchCancelled.String()})
}

// Marketplace handlers

func (s *Server) CreateListing(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Stream       string `json:"stream"`
		Quantity     uint64 `json:"quantity"`
		PricePerUnit uint64 `json:"price_per_unit"`
		Quality      string `json:"quality"`
		Description  string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	stream, err := waste.ParseStream(req.Stream)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return
	}
	quality, err := waste.ParseQuality(req.Quality)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return
	}

	id, err := s.ledger.CreateListing(addr, stream, req.Quantity, req.PricePerUnit, quality, req.Description)
	metrics.ObserveOperation("create_listing", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (s *Server) GetListingDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, err := s.ledger.GetListingDetails(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(l))
}

func (s *Server) PurchaseListing(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Quantity uint64 `json:"quantity"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	err = s.ledger.PurchaseListing(addr, id, req.Quantity)
	metrics.ObserveOperation("purchase_listing", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, err := s.ledger.GetListingDetails(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(l))
}

func (s *Server) CancelListing(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	err = s.ledger.CancelListing(addr, id)
	metrics.ObserveOperation("cancel_listing", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": waste.ListingCancelled.String()})
}

// Rates, funding and simulation handlers

func (s *Server) UpdateRate(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Table   string `json:"table"`
		Stream  string `json:"stream"`
		Quality string `json:"quality"`
		Value   uint64 `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var stream waste.Stream
	if req.Stream != "" {
		stream, err = waste.ParseStream(req.Stream)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
			return
		}
	}
	var quality waste.Quality
	if req.Quality != "" {
		quality, err = waste.ParseQuality(req.Quality)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
			return
		}
	}

	switch req.Table {
	case "reward_rate":
		err = s.ledger.SetRewardRate(addr, stream, req.Value)
	case "quality_multiplier":
		err = s.ledger.SetQualityMultiplier(addr, stream, quality, req.Value)
	case "carbon_offset_multiplier":
		err = s.ledger.SetCarbonOffsetMultiplier(addr, stream, req.Value)
	case "quality_carbon_multiplier":
		err = s.ledger.SetQualityCarbonMultiplier(addr, quality, req.Value)
	default:
		err = fmt.Errorf("%w: unknown rate table %q", ledger.ErrInvalidInput, req.Table)
	}
	metrics.ObserveOperation("update_rate", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"value": req.Value})
}

func (s *Server) FundContract(w http.ResponseWriter, r *http.Request) {
	addr, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	err = s.ledger.FundContract(addr, req.Amount)
	metrics.ObserveOperation("fund_contract", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	balance, err := s.ledger.GetContractTokenBalance()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (s *Server) SimulateReward(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stream, err := waste.ParseStream(q.Get("stream"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return
	}
	quality, err := waste.ParseQuality(q.Get("quality"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return
	}
	weight, err := strconv.ParseUint(q.Get("weight_kg"), 10, 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed weight_kg", ledger.ErrInvalidInput))
		return
	}

	rewardAmount, carbon, err := s.ledger.SimulateReward(stream, weight, quality)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{
		"reward":        rewardAmount,
		"carbon_offset": carbon,
	})
}

// Statistics handlers

func (s *Server) GetPlatformStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.GetPlatformStats()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) GetContractStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.GetContractStats()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) GetContractTokenBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.GetContractTokenBalance()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}
