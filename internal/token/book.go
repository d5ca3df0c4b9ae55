// Package token implements the stable-value token account book. Balances
// live in the same key-value store as the ledger entities so that a
// transfer and its triggering state change commit in one batch.
package token

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/africycle/africycle/internal/safemath"
	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db"
	"github.com/africycle/africycle/pkg/db/pebble"
)

var (
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrZeroAddress         = errors.New("token: zero address")
)

// accountPrefix sits outside the entity prefix range used by internal/store.
const accountPrefix byte = 0x40

// Book reads committed balances and stages transfers onto a batch.
// Callers serialize operations: at most one transfer per batch, committed
// before the next operation starts.
type Book struct {
	kv db.KVStore
}

func NewBook(kv db.KVStore) *Book {
	return &Book{kv: kv}
}

// BalanceOf returns the committed balance; unknown accounts hold zero.
func (b *Book) BalanceOf(addr waste.Address) (uint64, error) {
	raw, err := b.kv.Get(accountKey(addr))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return decodeBalance(raw)
}

// Transfer stages a balance move on the batch. Both account writes land in
// the same batch, so they commit or revert together with the caller's
// state changes.
func (b *Book) Transfer(batch db.Writer, from, to waste.Address, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	if amount == 0 {
		return nil
	}
	if from == to {
		return nil
	}

	fromBal, err := b.BalanceOf(from)
	if err != nil {
		return err
	}
	newFrom, ok := safemath.Sub64(fromBal, amount)
	if !ok {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, fromBal, amount)
	}

	toBal, err := b.BalanceOf(to)
	if err != nil {
		return err
	}
	newTo, ok := safemath.Add64(toBal, amount)
	if !ok {
		return fmt.Errorf("credit balance: %w", safemath.ErrOverflow)
	}

	if err := batch.Put(accountKey(from), encodeBalance(newFrom)); err != nil {
		return fmt.Errorf("stage debit: %w", err)
	}
	if err := batch.Put(accountKey(to), encodeBalance(newTo)); err != nil {
		return fmt.Errorf("stage credit: %w", err)
	}
	return nil
}

// Mint stages new supply for an account.
func (b *Book) Mint(batch db.Writer, to waste.Address, amount uint64) error {
	if to.IsZero() {
		return ErrZeroAddress
	}

	bal, err := b.BalanceOf(to)
	if err != nil {
		return err
	}
	newBal, ok := safemath.Add64(bal, amount)
	if !ok {
		return fmt.Errorf("mint balance: %w", safemath.ErrOverflow)
	}

	if err := batch.Put(accountKey(to), encodeBalance(newBal)); err != nil {
		return fmt.Errorf("stage mint: %w", err)
	}
	return nil
}

func accountKey(addr waste.Address) []byte {
	key := make([]byte, 1+waste.AddressSize)
	key[0] = accountPrefix
	copy(key[1:], addr[:])
	return key
}

func encodeBalance(v uint64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, v)
	return raw
}

func decodeBalance(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("malformed balance record: %d bytes", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}
