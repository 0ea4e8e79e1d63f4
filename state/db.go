package state

import (
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

const treeCacheSize = 128

// Header describes the last committed version of the ledger tree.
type Header struct {
	Version int64
	Hash    common.Hash
}

// StateDB owns the versioned ledger tree. Writes made through State are kept
// in the working tree until Commit saves them as one version; Rollback drops
// them. Callers serialize access.
type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree
	closer func() error

	header Header
	state  *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	ldb, err := dbm.NewDB("dao", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	db, err = openStateDB(ldb, logger)
	if err != nil {
		ldb.Close()
		return nil, err
	}
	db.dir = dir
	return
}

// NewMemStateDB opens a ledger tree that lives only in memory.
func NewMemStateDB(logger cmtlog.Logger) (*StateDB, error) {
	return openStateDB(dbm.NewMemDB(), logger)
}

func openStateDB(ldb dbm.DB, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "daodb")
	tdb := iavl.NewMutableTree(ldb, treeCacheSize, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	db = &StateDB{
		logger: logger,
		db:     tdb,
		closer: ldb.Close,
		state:  newState(tdb, logger),
	}
	db.header.Version = version
	if h := tdb.Hash(); version > 0 && h != nil {
		db.header.Hash = calcHash(h)
	}
	return
}

func (db *StateDB) Close() (err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	db.db.Rollback()
	err = db.closer()
	return
}

func (db *StateDB) Header() Header {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.header
}

// State returns the working view of the ledgers.
func (db *StateDB) State() *State {
	return db.state
}

// Commit saves every pending write as a new tree version.
func (db *StateDB) Commit() (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	root, ver, err := db.db.SaveVersion()
	if err != nil {
		db.db.Rollback()
		return
	}
	hash = calcHash(root)
	db.header = Header{Version: ver, Hash: hash}
	db.logger.Debug("commit state", "version", ver, "hash", hash)
	return
}

// Rollback discards every write made since the last Commit.
func (db *StateDB) Rollback() {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	db.db.Rollback()
}

// WorkingHash is the hash the tree would have if committed now.
func (db *StateDB) WorkingHash() common.Hash {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return calcHash(db.db.WorkingHash())
}
