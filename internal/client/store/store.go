// Package store implements the local encrypted store: every record is
// serialized, sealed with AES-GCM and only then persisted to the local
// SQLite database. The encryption key is derived from a device-bound secret
// and, when enabled, a user PIN; the PIN itself is never written to disk.
package store

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dpetrovs/stockkeeper/internal/client/migrations"
	"github.com/dpetrovs/stockkeeper/internal/client/repositories/actions"
	"github.com/dpetrovs/stockkeeper/internal/client/repositories/blobs"
	"github.com/dpetrovs/stockkeeper/internal/client/repositories/keyring"
	"github.com/dpetrovs/stockkeeper/internal/client/repositories/receipts"
	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/dpetrovs/stockkeeper/internal/cryptox"
	"github.com/dpetrovs/stockkeeper/internal/dbx"
	"github.com/dpetrovs/stockkeeper/internal/logging"
	"github.com/pressly/goose/v3"
)

// Keyring entry names. These rows bootstrap the encryption key and are the
// only plaintext state in the database.
const (
	keyDeviceSecret = "device_secret"
	keySalt         = "salt"
	keyPinRequired  = "pin_required"
	keyVerifier     = "verifier"
	keyDeviceID     = "device_id"
)

// Blob names for singleton encrypted records.
const (
	blobFlags     = "flags"
	blobSyncFlags = "sync_flags"
	blobDevice    = "device"
)

// SnapshotBlobName returns the blob name for a cached reference snapshot.
func SnapshotBlobName(name string) string { return "snapshot:" + name }

// Store is the local encrypted store. A single Store instance is the only
// writer for its database file; the internal mutex serializes every
// read-modify-write so concurrent enqueue and drain never interleave inside
// one operation. The mutex is held only for the duration of a single store
// operation, never across a network call.
type Store struct {
	db  *sql.DB
	log logging.Logger

	mu          sync.Mutex
	key         []byte // nil while a required PIN has not been verified
	pinRequired bool
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if necessary) the encrypted store at dsn.
//
// On first open it generates the device-bound secret and salt and derives
// the initial key. If a PIN requirement is recorded, the store comes back
// locked: data operations return common.ErrPinRequired until VerifyPin
// succeeds for this session.
func Open(ctx context.Context, dsn string, log logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, log: log}
	if err := s.loadKeyring(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database and wipes the in-memory key.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	common.WipeByteArray(s.key)
	s.key = nil
	return s.db.Close()
}

// PinRequired reports whether a PIN must be verified before data operations.
func (s *Store) PinRequired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinRequired
}

// Locked reports whether the store currently has no usable session key.
func (s *Store) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key == nil
}

func (s *Store) loadKeyring(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		kr := keyring.NewSQLiteRepository(tx)

		secret, err := kr.Get(ctx, keyDeviceSecret)
		if errors.Is(err, common.ErrNotFound) {
			return s.bootstrapKeyring(ctx, kr)
		}
		if err != nil {
			return err
		}

		salt, err := kr.Get(ctx, keySalt)
		if err != nil {
			return err
		}
		pinFlag, err := kr.Get(ctx, keyPinRequired)
		if err != nil {
			return err
		}
		verifier, err := kr.Get(ctx, keyVerifier)
		if err != nil {
			return err
		}

		s.pinRequired = string(pinFlag) == "1"
		if s.pinRequired {
			// Locked until VerifyPin; the verifier alone cannot yield the key.
			return nil
		}

		key := cryptox.DeriveKey(secret, nil, salt)
		if subtle.ConstantTimeCompare(verifier, cryptox.MakeVerifier(key)) == 0 {
			return fmt.Errorf("%w: keyring verifier mismatch", common.ErrDecryptionFailed)
		}
		s.key = key
		return nil
	})
}

func (s *Store) bootstrapKeyring(ctx context.Context, kr keyring.Repository) error {
	secret := common.GenerateRandByteArray(32)
	salt := common.GenerateRandByteArray(32)
	key := cryptox.DeriveKey(secret, nil, salt)

	if err := kr.Set(ctx, keyDeviceSecret, secret); err != nil {
		return err
	}
	if err := kr.Set(ctx, keySalt, salt); err != nil {
		return err
	}
	if err := kr.Set(ctx, keyPinRequired, []byte("0")); err != nil {
		return err
	}
	if err := kr.Set(ctx, keyVerifier, cryptox.MakeVerifier(key)); err != nil {
		return err
	}

	s.pinRequired = false
	s.key = key
	return nil
}

// sessionKey returns the current key. Callers must hold s.mu.
func (s *Store) sessionKey() ([]byte, error) {
	if s.key == nil {
		return nil, common.ErrPinRequired
	}
	return s.key, nil
}

// VerifyPin checks the candidate PIN against the stored verifier and, on
// success, unlocks the store for the current session.
//
// A wrong PIN returns common.ErrPinInvalid and mutates nothing: queued data
// survives any number of failed attempts. This is deliberately more
// conservative than wipe-on-failure device-lock policies.
func (s *Store) VerifyPin(ctx context.Context, pin []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pinRequired {
		return nil
	}

	kr := keyring.NewSQLiteRepository(s.db)
	secret, err := kr.Get(ctx, keyDeviceSecret)
	if err != nil {
		return err
	}
	salt, err := kr.Get(ctx, keySalt)
	if err != nil {
		return err
	}
	verifier, err := kr.Get(ctx, keyVerifier)
	if err != nil {
		return err
	}

	candidate := cryptox.DeriveKey(secret, pin, salt)
	if subtle.ConstantTimeCompare(verifier, cryptox.MakeVerifier(candidate)) == 0 {
		return common.ErrPinInvalid
	}

	common.WipeByteArray(s.key)
	s.key = candidate
	return nil
}

// SetPin enables PIN protection (or changes the PIN). The store must be
// unlocked. Every sealed record is re-encrypted under the PIN-strengthened
// key inside a single transaction, so readers never observe mixed-key data.
func (s *Store) SetPin(ctx context.Context, pin []byte) error {
	if len(pin) == 0 {
		return fmt.Errorf("%w: empty pin", common.ErrPinInvalid)
	}
	return s.rekey(ctx, pin, true)
}

// ClearPin removes the PIN requirement, re-encrypting all data under the
// device-secret-only key. The store must be unlocked.
func (s *Store) ClearPin(ctx context.Context) error {
	return s.rekey(ctx, nil, false)
}

func (s *Store) rekey(ctx context.Context, pin []byte, pinRequired bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldKey, err := s.sessionKey()
	if err != nil {
		return err
	}

	var newKey []byte
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		kr := keyring.NewSQLiteRepository(tx)

		secret, err := kr.Get(ctx, keyDeviceSecret)
		if err != nil {
			return err
		}
		salt, err := kr.Get(ctx, keySalt)
		if err != nil {
			return err
		}

		newKey = cryptox.DeriveKey(secret, pin, salt)

		if err := reencryptAll(ctx, tx, oldKey, newKey); err != nil {
			return err
		}

		flag := []byte("0")
		if pinRequired {
			flag = []byte("1")
		}
		if err := kr.Set(ctx, keyPinRequired, flag); err != nil {
			return err
		}
		return kr.Set(ctx, keyVerifier, cryptox.MakeVerifier(newKey))
	})
	if err != nil {
		return err
	}

	// The in-memory key changes only once the transaction has committed;
	// a rolled-back rekey leaves the session fully usable.
	common.WipeByteArray(s.key)
	s.key = newKey
	s.pinRequired = pinRequired
	return nil
}

// reencryptAll rewrites every sealed row under newKey. Payloads are opened
// into raw JSON and sealed again; a row that fails to open aborts the whole
// transaction.
func reencryptAll(ctx context.Context, tx dbx.DBTX, oldKey, newKey []byte) error {
	actionRepo := actions.NewSQLiteRepository(tx)
	rows, err := actionRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		var payload map[string]any
		if err := cryptox.Open(row.Ciphertext, row.Nonce, oldKey, &payload); err != nil {
			return err
		}
		ciphertext, nonce, err := cryptox.Seal(payload, newKey)
		if err != nil {
			return err
		}
		row.Ciphertext, row.Nonce = ciphertext, nonce
		if err := actionRepo.Update(ctx, row); err != nil {
			return err
		}
	}

	blobRepo := blobs.NewSQLiteRepository(tx)
	blobRows, err := blobRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, b := range blobRows {
		var payload any
		if err := cryptox.Open(b.Ciphertext, b.Nonce, oldKey, &payload); err != nil {
			return err
		}
		ciphertext, nonce, err := cryptox.Seal(payload, newKey)
		if err != nil {
			return err
		}
		b.Ciphertext, b.Nonce = ciphertext, nonce
		if err := blobRepo.Put(ctx, b); err != nil {
			return err
		}
	}

	receiptRepo := receipts.NewSQLiteRepository(tx)
	receiptRows, err := receiptRepo.List(ctx)
	if err != nil {
		return err
	}
	if len(receiptRows) > 0 {
		if err := receiptRepo.Clear(ctx); err != nil {
			return err
		}
		for _, row := range receiptRows {
			var payload any
			if err := cryptox.Open(row.Ciphertext, row.Nonce, oldKey, &payload); err != nil {
				return err
			}
			ciphertext, nonce, err := cryptox.Seal(payload, newKey)
			if err != nil {
				return err
			}
			if err := receiptRepo.Append(ctx, &receipts.Row{Ciphertext: ciphertext, Nonce: nonce}); err != nil {
				return err
			}
		}
	}
	return nil
}

// RotateKey generates fresh key material and purges all encrypted data.
// There is no re-encryption-in-place: rotation is always paired with a full
// purge so the store never handles mixed-key data. Any PIN requirement is
// reset. Rotation works on a locked store; revoking a device whose PIN was
// forgotten must still be able to destroy its data.
func (s *Store) RotateKey(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret := common.GenerateRandByteArray(32)
	salt := common.GenerateRandByteArray(32)
	key := cryptox.DeriveKey(secret, nil, salt)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := purgeData(ctx, tx); err != nil {
			return err
		}

		kr := keyring.NewSQLiteRepository(tx)
		if err := kr.Set(ctx, keyDeviceSecret, secret); err != nil {
			return err
		}
		if err := kr.Set(ctx, keySalt, salt); err != nil {
			return err
		}
		if err := kr.Set(ctx, keyPinRequired, []byte("0")); err != nil {
			return err
		}
		return kr.Set(ctx, keyVerifier, cryptox.MakeVerifier(key))
	})
	if err != nil {
		return err
	}

	common.WipeByteArray(s.key)
	s.key = key
	s.pinRequired = false
	return nil
}

// ClearData deletes every queued action, cached blob and receipt entry.
// Key material and the device id are left in place; use RotateKey and
// DeleteDeviceID for a full revoke wipe. Works on a locked store.
func (s *Store) ClearData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return purgeData(ctx, tx)
	})
}

func purgeData(ctx context.Context, tx dbx.DBTX) error {
	if err := actions.NewSQLiteRepository(tx).Clear(ctx); err != nil {
		return err
	}
	if err := blobs.NewSQLiteRepository(tx).Clear(ctx); err != nil {
		return err
	}
	return receipts.NewSQLiteRepository(tx).Clear(ctx)
}

// DeviceID returns the persisted device id, or common.ErrNotFound if this
// installation has not generated one yet.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := keyring.NewSQLiteRepository(s.db).Get(ctx, keyDeviceID)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// SetDeviceID persists the installation's device id.
func (s *Store) SetDeviceID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return keyring.NewSQLiteRepository(s.db).Set(ctx, keyDeviceID, []byte(id))
}

// DeleteDeviceID removes the device id; the next registration generates a
// fresh one.
func (s *Store) DeleteDeviceID(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return keyring.NewSQLiteRepository(s.db).Delete(ctx, keyDeviceID)
}
