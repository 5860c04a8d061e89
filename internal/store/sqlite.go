package store

import (
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/dbirdge/btcrelay/internal/btcheader"
	"github.com/dbirdge/btcrelay/internal/relay"
)

const schema = `
CREATE TABLE IF NOT EXISTS relay_state (
	id                 INTEGER PRIMARY KEY CHECK (id = 1),
	best_block         BLOB    NOT NULL,
	best_height        INTEGER NOT NULL,
	prune_height       INTEGER NOT NULL,
	epoch_start_target TEXT    NOT NULL,
	epoch_end_target   TEXT    NOT NULL,
	epoch_start_time   INTEGER NOT NULL,
	epoch_end_time     INTEGER NOT NULL,
	chain_counter      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS headers (
	hash     BLOB PRIMARY KEY,
	raw      BLOB    NOT NULL,
	height   INTEGER NOT NULL,
	chain_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chain (
	height     INTEGER PRIMARY KEY,
	block_hash BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS forks (
	chain_id    INTEGER PRIMARY KEY,
	height      INTEGER NOT NULL,
	ancestor    BLOB    NOT NULL,
	descendants BLOB    NOT NULL
);
`

// SQLite persists relay state so a relayer restart resumes from its
// last accepted header instead of re-anchoring. Difficulty targets
// are stored as decimal strings, matching the on-chain account
// layout; fork descendants as concatenated 32-byte hashes.
//
// The relay engine serializes all writes, so a single connection
// behind a mutex is sufficient.
type SQLite struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	logger *slog.Logger
}

// OpenSQLite opens (and creates, if needed) the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open relay database %s: %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply relay schema: %w", err)
	}
	logger.Info("relay store opened", "path", path)
	return &SQLite{conn: conn, logger: logger}, nil
}

func (s *SQLite) State() (*relay.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state *relay.State
	err := sqlitex.Execute(s.conn,
		`SELECT best_block, best_height, prune_height, epoch_start_target,
		        epoch_end_target, epoch_start_time, epoch_end_time, chain_counter
		 FROM relay_state WHERE id = 1`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				st := &relay.State{}
				readBlobInto(stmt, 0, st.BestBlock[:])
				st.BestHeight = uint32(stmt.ColumnInt64(1))
				st.PruneHeight = uint32(stmt.ColumnInt64(2))
				st.EpochStartTarget = parseTarget(stmt.ColumnText(3))
				st.EpochEndTarget = parseTarget(stmt.ColumnText(4))
				st.EpochStartTime = uint32(stmt.ColumnInt64(5))
				st.EpochEndTime = uint32(stmt.ColumnInt64(6))
				st.ChainCounter = uint64(stmt.ColumnInt64(7))
				state = st
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("load relay state: %w", err)
	}
	return state, nil
}

func (s *SQLite) PutState(state *relay.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn,
		`INSERT INTO relay_state (id, best_block, best_height, prune_height,
		        epoch_start_target, epoch_end_target, epoch_start_time,
		        epoch_end_time, chain_counter)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		        best_block = excluded.best_block,
		        best_height = excluded.best_height,
		        prune_height = excluded.prune_height,
		        epoch_start_target = excluded.epoch_start_target,
		        epoch_end_target = excluded.epoch_end_target,
		        epoch_start_time = excluded.epoch_start_time,
		        epoch_end_time = excluded.epoch_end_time,
		        chain_counter = excluded.chain_counter`,
		&sqlitex.ExecOptions{
			Args: []any{
				state.BestBlock[:], int64(state.BestHeight), int64(state.PruneHeight),
				formatTarget(state.EpochStartTarget), formatTarget(state.EpochEndTarget),
				int64(state.EpochStartTime), int64(state.EpochEndTime),
				int64(state.ChainCounter),
			},
		})
	if err != nil {
		return fmt.Errorf("store relay state: %w", err)
	}
	return nil
}

func (s *SQLite) Header(hash [32]byte) (*relay.HeaderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *relay.HeaderRecord
	err := sqlitex.Execute(s.conn,
		`SELECT raw, height, chain_id FROM headers WHERE hash = ?`,
		&sqlitex.ExecOptions{
			Args: []any{hash[:]},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				r := &relay.HeaderRecord{Hash: hash}
				var raw [btcheader.Size]byte
				readBlobInto(stmt, 0, raw[:])
				r.Raw = btcheader.Header(raw)
				r.Height = uint32(stmt.ColumnInt64(1))
				r.ChainID = uint64(stmt.ColumnInt64(2))
				rec = r
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("load header: %w", err)
	}
	return rec, nil
}

func (s *SQLite) PutHeader(rec *relay.HeaderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn,
		`INSERT INTO headers (hash, raw, height, chain_id) VALUES (?, ?, ?, ?)
		 ON CONFLICT (hash) DO UPDATE SET
		        raw = excluded.raw,
		        height = excluded.height,
		        chain_id = excluded.chain_id`,
		&sqlitex.ExecOptions{
			Args: []any{rec.Hash[:], rec.Raw[:], int64(rec.Height), int64(rec.ChainID)},
		})
	if err != nil {
		return fmt.Errorf("store header: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteHeader(hash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn, `DELETE FROM headers WHERE hash = ?`,
		&sqlitex.ExecOptions{Args: []any{hash[:]}})
	if err != nil {
		return fmt.Errorf("delete header: %w", err)
	}
	return nil
}

func (s *SQLite) ChainHash(height uint32) ([32]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hash [32]byte
	found := false
	err := sqlitex.Execute(s.conn,
		`SELECT block_hash FROM chain WHERE height = ?`,
		&sqlitex.ExecOptions{
			Args: []any{int64(height)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				readBlobInto(stmt, 0, hash[:])
				found = true
				return nil
			},
		})
	if err != nil {
		return [32]byte{}, false, fmt.Errorf("load chain index: %w", err)
	}
	return hash, found, nil
}

func (s *SQLite) PutChainHash(height uint32, hash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn,
		`INSERT INTO chain (height, block_hash) VALUES (?, ?)
		 ON CONFLICT (height) DO UPDATE SET block_hash = excluded.block_hash`,
		&sqlitex.ExecOptions{Args: []any{int64(height), hash[:]}})
	if err != nil {
		return fmt.Errorf("store chain index: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteChainHash(height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn, `DELETE FROM chain WHERE height = ?`,
		&sqlitex.ExecOptions{Args: []any{int64(height)}})
	if err != nil {
		return fmt.Errorf("delete chain index: %w", err)
	}
	return nil
}

func (s *SQLite) Fork(chainID uint64) (*relay.Fork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fork *relay.Fork
	err := sqlitex.Execute(s.conn,
		`SELECT height, ancestor, descendants FROM forks WHERE chain_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{int64(chainID)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				f := &relay.Fork{ChainID: chainID}
				f.Height = uint32(stmt.ColumnInt64(0))
				readBlobInto(stmt, 1, f.Ancestor[:])
				buf := make([]byte, stmt.ColumnLen(2))
				stmt.ColumnBytes(2, buf)
				f.Descendants = splitHashes(buf)
				fork = f
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("load fork: %w", err)
	}
	return fork, nil
}

func (s *SQLite) PutFork(fork *relay.Fork) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn,
		`INSERT INTO forks (chain_id, height, ancestor, descendants) VALUES (?, ?, ?, ?)
		 ON CONFLICT (chain_id) DO UPDATE SET
		        height = excluded.height,
		        ancestor = excluded.ancestor,
		        descendants = excluded.descendants`,
		&sqlitex.ExecOptions{
			Args: []any{int64(fork.ChainID), int64(fork.Height), fork.Ancestor[:], joinHashes(fork.Descendants)},
		})
	if err != nil {
		return fmt.Errorf("store fork: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteFork(chainID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := sqlitex.Execute(s.conn, `DELETE FROM forks WHERE chain_id = ?`,
		&sqlitex.ExecOptions{Args: []any{int64(chainID)}})
	if err != nil {
		return fmt.Errorf("delete fork: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func readBlobInto(stmt *sqlite.Stmt, col int, dst []byte) {
	buf := make([]byte, stmt.ColumnLen(col))
	stmt.ColumnBytes(col, buf)
	copy(dst, buf)
}

func parseTarget(s string) *big.Int {
	if s == "" {
		return nil
	}
	target, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return target
}

func formatTarget(target *big.Int) string {
	if target == nil {
		return ""
	}
	return target.String()
}

func joinHashes(hashes [][32]byte) []byte {
	out := make([]byte, 0, len(hashes)*32)
	for _, h := range hashes {
		out = append(out, h[:]...)
	}
	return out
}

func splitHashes(buf []byte) [][32]byte {
	out := make([][32]byte, 0, len(buf)/32)
	for off := 0; off+32 <= len(buf); off += 32 {
		var h [32]byte
		copy(h[:], buf[off:off+32])
		out = append(out, h)
	}
	return out
}

var _ relay.Store = (*SQLite)(nil)
