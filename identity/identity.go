// Package identity implements the IDManager: creation and custody of
// per-entity ECDSA keypairs, sealed in an owner-only dotenv-shaped key
// store file, with belief-backed address lookup and Ethereum-style
// "defunct" message signing/verification.
package identity

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"

	"github.com/itsneelabh/mindhive/belief"
	"github.com/itsneelabh/mindhive/core"
	"github.com/itsneelabh/mindhive/memory"
)

var unsafeEnvChars = regexp.MustCompile(`\W+`)

// entityToAddressPrefix namespaces the BeliefSystem keys ListManagedIdentities
// queries; beliefKeyEntityToAddress builds the per-entity key from it.
const entityToAddressPrefix = "identity.map.entity_to_address."

// envVarName deterministically derives the key-store variable name for an
// entity ID, matching the original's MINDX_WALLET_PK_<SAFE_ID> convention.
func envVarName(entityID string) string {
	safe := unsafeEnvChars.ReplaceAllString(entityID, "_")
	return fmt.Sprintf(core.EnvWalletPKFmt, strings.ToUpper(safe))
}

// Manager creates and custody-holds keypairs. Private keys never leave the
// sealed key-store file except through Sign/private-key release flows.
type Manager struct {
	mu        sync.Mutex
	agentID   string
	keyStore  string
	beliefs   *belief.System
	memAgent  *memory.Agent
	logger    core.Logger
}

// NewManager creates an IDManager whose key store lives at keyStorePath.
// The store file and its parent directory are created with owner-only
// permissions on first use.
func NewManager(agentID, keyStorePath string, beliefs *belief.System, memAgent *memory.Agent, logger core.Logger) (*Manager, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("identity")
	}

	m := &Manager{
		agentID:  agentID,
		keyStore: keyStorePath,
		beliefs:  beliefs,
		memAgent: memAgent,
		logger:   logger,
	}

	if err := ensureKeyStore(keyStorePath); err != nil {
		return nil, fmt.Errorf("sealing key store: %w: %w", core.ErrKeyStoreSealed, err)
	}

	return m, nil
}

// GetPublicAddress returns the address associated with entityID, checking
// the shared BeliefSystem first, then deriving it from the sealed private
// key on a miss. Returns ErrWalletNotFound if neither source has a key.
func (m *Manager) GetPublicAddress(ctx context.Context, entityID string) (string, error) {
	if m.beliefs != nil {
		if b, ok := m.beliefs.Get(ctx, beliefKeyEntityToAddress(entityID)); ok {
			m.trace(ctx, "id_manager_address_lookup", map[string]interface{}{
				"entity_id": entityID, "address": b.Value, "source": "belief_system",
			})
			return fmt.Sprintf("%v", b.Value), nil
		}
	}

	privHex, err := m.loadPrivateKeyHex(entityID)
	if err != nil {
		m.trace(ctx, "id_manager_address_not_found", map[string]interface{}{"entity_id": entityID})
		return "", core.ErrWalletNotFound
	}

	address, err := addressFromPrivateKeyHex(privHex)
	if err != nil {
		m.trace(ctx, "id_manager_address_derivation_failed", map[string]interface{}{
			"entity_id": entityID, "error": err.Error(),
		})
		return "", fmt.Errorf("deriving address: %w", err)
	}

	if m.beliefs != nil {
		_ = m.beliefs.Add(ctx, beliefKeyEntityToAddress(entityID), address, 1.0, belief.SourceDerived)
		_ = m.beliefs.Add(ctx, beliefKeyAddressToEntity(address), entityID, 1.0, belief.SourceDerived)
	}

	m.trace(ctx, "id_manager_address_derived", map[string]interface{}{
		"entity_id": entityID, "address": address, "source": "private_key",
	})

	return address, nil
}

// ManagedIdentity pairs an entity ID with the address this Manager (via the
// shared BeliefSystem) knows it by.
type ManagedIdentity struct {
	EntityID string `json:"entity_id"`
	Address  string `json:"public_address"`
}

// ListManagedIdentities returns every entity with a known address mapping,
// ordered by entity ID. The mapping comes entirely from the BeliefSystem's
// entity-to-address namespace, so an entity whose address was never looked
// up or created through this Manager (and thus never recorded as a belief)
// won't appear even if its key exists in the sealed key store.
func (m *Manager) ListManagedIdentities(ctx context.Context) ([]ManagedIdentity, error) {
	if m.beliefs == nil {
		return nil, nil
	}

	matches := m.beliefs.Query(ctx, entityToAddressPrefix, 0, "")
	out := make([]ManagedIdentity, 0, len(matches))
	for _, r := range matches {
		out = append(out, ManagedIdentity{
			EntityID: strings.TrimPrefix(r.Key, entityToAddressPrefix),
			Address:  fmt.Sprintf("%v", r.Belief.Value),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })

	return out, nil
}

// GetEntityID reverse-looks-up the entity owning publicAddress.
func (m *Manager) GetEntityID(ctx context.Context, publicAddress string) (string, error) {
	if m.beliefs == nil {
		return "", core.ErrWalletNotFound
	}
	b, ok := m.beliefs.Get(ctx, beliefKeyAddressToEntity(publicAddress))
	if !ok {
		m.trace(ctx, "id_manager_entity_lookup", map[string]interface{}{
			"public_address": publicAddress, "found": false,
		})
		return "", core.ErrWalletNotFound
	}
	m.trace(ctx, "id_manager_entity_lookup", map[string]interface{}{
		"public_address": publicAddress, "entity_id": b.Value, "found": true,
	})
	return fmt.Sprintf("%v", b.Value), nil
}

// CreateNewWallet creates a new keypair for entityID, persists the private
// key in the sealed store, and records both belief directions. Idempotent:
// if a wallet already exists for entityID, it is returned unchanged.
func (m *Manager) CreateNewWallet(ctx context.Context, entityID string) (address string, env string, err error) {
	if existing, lookupErr := m.GetPublicAddress(ctx, entityID); lookupErr == nil {
		m.trace(ctx, "id_manager_wallet_exists", map[string]interface{}{
			"entity_id": entityID, "address": existing, "env_var": envVarName(entityID),
		})
		return existing, envVarName(entityID), nil
	}

	priv, genErr := crypto.GenerateKey()
	if genErr != nil {
		return "", "", fmt.Errorf("generating key: %w", genErr)
	}
	privHex := fmt.Sprintf("%x", crypto.FromECDSA(priv))
	address = crypto.PubkeyToAddress(priv.PublicKey).Hex()
	varName := envVarName(entityID)

	m.mu.Lock()
	setErr := setKey(m.keyStore, varName, privHex)
	m.mu.Unlock()
	if setErr != nil {
		m.trace(ctx, "id_manager_wallet_creation_failed", map[string]interface{}{
			"entity_id": entityID, "error": setErr.Error(),
		})
		return "", "", fmt.Errorf("storing private key: %w", setErr)
	}

	if m.beliefs != nil {
		_ = m.beliefs.Add(ctx, beliefKeyEntityToAddress(entityID), address, 1.0, belief.SourceDerived)
		_ = m.beliefs.Add(ctx, beliefKeyAddressToEntity(address), entityID, 1.0, belief.SourceDerived)
	}

	m.trace(ctx, "id_manager_wallet_created", map[string]interface{}{
		"entity_id": entityID, "address": address, "env_var": varName, "success": true,
	})

	return address, varName, nil
}

// GetPrivateKeyForGuardian returns the raw private key hex for entityID.
// Callers outside Guardian's verified release flow must never call this.
func (m *Manager) GetPrivateKeyForGuardian(entityID string) (string, error) {
	return m.loadPrivateKeyHex(entityID)
}

// SignMessage signs message with entityID's private key using the
// Ethereum "defunct" prefix, returning a hex-encoded signature.
func (m *Manager) SignMessage(ctx context.Context, entityID, message string) (string, error) {
	privHex, err := m.loadPrivateKeyHex(entityID)
	if err != nil {
		m.trace(ctx, "id_manager_sign_failed_no_key", map[string]interface{}{
			"entity_id": entityID, "message_length": len(message),
		})
		return "", core.ErrWalletNotFound
	}

	priv, err := crypto.HexToECDSA(privHex)
	if err != nil {
		return "", fmt.Errorf("parsing private key: %w", err)
	}

	hash := accounts.TextHash([]byte(message))
	sig, err := crypto.Sign(hash, priv)
	if err != nil {
		m.trace(ctx, "id_manager_sign_failed_crypto", map[string]interface{}{
			"entity_id": entityID, "error": err.Error(),
		})
		return "", fmt.Errorf("signing message: %w", err)
	}

	signature := fmt.Sprintf("%x", sig)
	m.trace(ctx, "id_manager_message_signed", map[string]interface{}{
		"entity_id": entityID, "message_length": len(message),
		"signature_length": len(signature), "success": true,
	})

	return signature, nil
}

// VerifySignature reports whether signature over message was produced by
// the private key behind publicAddress.
func (m *Manager) VerifySignature(publicAddress, message, signature string) bool {
	sig, err := hexDecode(signature)
	if err != nil || len(sig) != 65 {
		return false
	}

	hash := accounts.TextHash([]byte(message))

	// go-ethereum's Sign produces a recovery ID in sig[64] of 0/1; SigToPub
	// expects that directly.
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pub)
	return strings.EqualFold(recovered.Hex(), publicAddress)
}

func (m *Manager) loadPrivateKeyHex(entityID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, err := godotenv.Read(m.keyStore)
	if err != nil {
		return "", fmt.Errorf("reading key store: %w", err)
	}

	v, ok := env[envVarName(entityID)]
	if !ok || v == "" {
		return "", core.ErrWalletNotFound
	}
	return v, nil
}

func (m *Manager) trace(ctx context.Context, process string, data map[string]interface{}) {
	if m.memAgent == nil {
		return
	}
	_ = m.memAgent.LogProcess(ctx, m.agentID, process, data, map[string]interface{}{"agent_id": m.agentID})
}

func addressFromPrivateKeyHex(privHex string) (string, error) {
	priv, err := crypto.HexToECDSA(privHex)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}

func beliefKeyEntityToAddress(entityID string) string {
	return entityToAddressPrefix + entityID
}

func beliefKeyAddressToEntity(address string) string {
	return "identity.map.address_to_entity." + address
}

func hexDecode(s string) ([]byte, error) {
	return common.FromHex("0x" + strings.TrimPrefix(s, "0x")), nil
}
