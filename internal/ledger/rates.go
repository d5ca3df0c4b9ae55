package ledger

import (
	"fmt"

	"github.com/africycle/africycle/internal/waste"
)

// Rate-table mutations are admin only and take effect for computations
// performed after the update; past rewards are never recomputed. The new
// tables are persisted so a restart keeps them.

func (l *Ledger) SetRewardRate(caller waste.Address, stream waste.Stream, rate uint64) error {
	return l.updateRates(caller, rate, func() error {
		return l.engine.SetBaseRate(stream, rate)
	})
}

func (l *Ledger) SetQualityMultiplier(caller waste.Address, stream waste.Stream, quality waste.Quality, mul uint64) error {
	return l.updateRates(caller, mul, func() error {
		return l.engine.SetQualityMultiplier(stream, quality, mul)
	})
}

func (l *Ledger) SetCarbonOffsetMultiplier(caller waste.Address, stream waste.Stream, rate uint64) error {
	return l.updateRates(caller, rate, func() error {
		return l.engine.SetCarbonRate(stream, rate)
	})
}

func (l *Ledger) SetQualityCarbonMultiplier(caller waste.Address, quality waste.Quality, mul uint64) error {
	return l.updateRates(caller, mul, func() error {
		return l.engine.SetQualityCarbonMultiplier(quality, mul)
	})
}

func (l *Ledger) updateRates(caller waste.Address, value uint64, set func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if err := set(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	if err := l.store.PutRates(batch, l.engine.Snapshot()); err != nil {
		return err
	}
	if _, err := l.appendEvent(batch, waste.Event{
		Kind:  waste.EventRateUpdated,
		Time:  l.timestamp(),
		Actor: caller,
		Aux:   value,
	}); err != nil {
		return err
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit rate update: %w", err)
	}

	l.log.Info().Uint64("value", value).Msg("rate table updated")
	return nil
}

// FundContract mints reward liquidity into the contract account. Admin
// only; stands in for the on-chain token deposit.
func (l *Ledger) FundContract(caller waste.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	if err := l.token.Mint(batch, ContractAccount, amount); err != nil {
		return err
	}
	if _, err := l.appendEvent(batch, waste.Event{
		Kind:  waste.EventContractFunded,
		Time:  l.timestamp(),
		Actor: caller,
		Value: amount,
	}); err != nil {
		return err
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit funding: %w", err)
	}

	l.log.Info().Uint64("amount", amount).Msg("contract funded")
	return nil
}

// SimulateReward computes the reward and carbon offset for hypothetical
// inputs against the current tables, without mutating anything.
func (l *Ledger) SimulateReward(stream waste.Stream, weightKg uint64, quality waste.Quality) (rewardAmount, carbonOffset uint64, err error) {
	rewardAmount, err = l.engine.Reward(stream, weightKg, quality)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	carbonOffset, err = l.engine.CarbonOffset(stream, weightKg, quality)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return rewardAmount, carbonOffset, nil
}
