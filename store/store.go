// Package store caches contract events in a local sqlite database so the
// explorer only has to fetch blocks it has not seen.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"trustchain-tui/contract"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS donations (
	contract     TEXT    NOT NULL,
	tx_hash      TEXT    NOT NULL,
	log_index    INTEGER NOT NULL,
	block_number INTEGER NOT NULL,
	donor        TEXT    NOT NULL,
	receiver     TEXT    NOT NULL,
	amount       TEXT    NOT NULL,
	donor_name   TEXT    NOT NULL,
	timestamp    INTEGER NOT NULL,
	PRIMARY KEY (contract, tx_hash, log_index)
);
CREATE TABLE IF NOT EXISTS registrations (
	contract     TEXT    NOT NULL,
	tx_hash      TEXT    NOT NULL,
	log_index    INTEGER NOT NULL,
	block_number INTEGER NOT NULL,
	user         TEXT    NOT NULL,
	name         TEXT    NOT NULL,
	PRIMARY KEY (contract, tx_hash, log_index)
);
CREATE TABLE IF NOT EXISTS cursors (
	contract TEXT    NOT NULL PRIMARY KEY,
	block    INTEGER NOT NULL
);`

// Store is an event cache keyed by contract address.
type Store struct {
	db *sql.DB
}

// Batch is one sync step: the events found up to and including block Through.
type Batch struct {
	Donations     []contract.DonationEvent
	Registrations []contract.Registration
	Through       uint64
}

// Open opens or creates the cache at path. ":memory:" gives a private
// in-memory cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// a second connection to ":memory:" would see an empty database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Cursor returns the last block synced for addr. ok is false when nothing has
// been synced yet.
func (s *Store) Cursor(ctx context.Context, addr common.Address) (block uint64, ok bool, err error) {
	var n int64
	err = s.db.QueryRowContext(ctx, `SELECT block FROM cursors WHERE contract = ?`, addr.Hex()).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read cursor: %w", err)
	}
	return uint64(n), true, nil
}

// Append stores a batch and advances the cursor in one transaction. Events
// already present are skipped, so overlapping batches are harmless.
func (s *Store) Append(ctx context.Context, addr common.Address, b Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range b.Donations {
		amount := "0"
		if ev.Amount != nil {
			amount = ev.Amount.String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO donations
			 (contract, tx_hash, log_index, block_number, donor, receiver, amount, donor_name, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			addr.Hex(), ev.TxHash.Hex(), int64(ev.LogIndex), int64(ev.BlockNumber),
			ev.Donor.Hex(), ev.Receiver.Hex(), amount, ev.DonorName, ev.Timestamp.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert donation %s: %w", ev.TxHash.Hex(), err)
		}
	}
	for _, r := range b.Registrations {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO registrations
			 (contract, tx_hash, log_index, block_number, user, name)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			addr.Hex(), r.TxHash.Hex(), int64(r.LogIndex), int64(r.BlockNumber), r.User.Hex(), r.Name,
		)
		if err != nil {
			return fmt.Errorf("insert registration %s: %w", r.TxHash.Hex(), err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cursors (contract, block) VALUES (?, ?)
		 ON CONFLICT(contract) DO UPDATE SET block = MAX(block, excluded.block)`,
		addr.Hex(), int64(b.Through),
	)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	return tx.Commit()
}

// Donations returns every cached donation for addr in chain order.
func (s *Store) Donations(ctx context.Context, addr common.Address) ([]contract.DonationEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tx_hash, log_index, block_number, donor, receiver, amount, donor_name, timestamp
		 FROM donations WHERE contract = ? ORDER BY block_number, log_index`, addr.Hex())
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}
	defer rows.Close()

	var out []contract.DonationEvent
	for rows.Next() {
		var (
			hash, donor, receiver, amount, name string
			logIndex, block, ts                 int64
		)
		if err := rows.Scan(&hash, &logIndex, &block, &donor, &receiver, &amount, &name, &ts); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		wei, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt amount %q for %s", amount, hash)
		}
		out = append(out, contract.DonationEvent{
			Donor:       common.HexToAddress(donor),
			Receiver:    common.HexToAddress(receiver),
			Amount:      wei,
			DonorName:   name,
			Timestamp:   time.Unix(ts, 0),
			TxHash:      common.HexToHash(hash),
			BlockNumber: uint64(block),
			LogIndex:    uint(logIndex),
		})
	}
	return out, rows.Err()
}

// Registrations returns every cached registration for addr in chain order.
func (s *Store) Registrations(ctx context.Context, addr common.Address) ([]contract.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tx_hash, log_index, block_number, user, name
		 FROM registrations WHERE contract = ? ORDER BY block_number, log_index`, addr.Hex())
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	var out []contract.Registration
	for rows.Next() {
		var (
			hash, user, name string
			logIndex, block  int64
		)
		if err := rows.Scan(&hash, &logIndex, &block, &user, &name); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, contract.Registration{
			User:        common.HexToAddress(user),
			Name:        name,
			TxHash:      common.HexToHash(hash),
			BlockNumber: uint64(block),
			LogIndex:    uint(logIndex),
		})
	}
	return out, rows.Err()
}
