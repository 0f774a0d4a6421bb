// Package guardian implements cryptographic admission control: new agents
// must pass an identity check, a registry-status check, a challenge-response
// proof of key possession, and a workspace check before the Coordinator
// admits them, and Guardian alone gates release of a sealed private key.
package guardian

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/itsneelabh/mindhive/core"
	"github.com/itsneelabh/mindhive/identity"
	"github.com/itsneelabh/mindhive/memory"
)

type challenge struct {
	nonce     string
	issuedAt  time.Time
}

// Guardian admits agents and gates private-key release via challenge-response.
type Guardian struct {
	mu           sync.Mutex
	agentID      string
	challenges   map[string]challenge
	expiry       time.Duration
	registryPath string
	requireWS    bool

	idManager *identity.Manager
	memAgent  *memory.Agent
	logger    core.Logger
}

// New creates a Guardian identified by agentID, whose own wallet is
// created (idempotently) in idManager during construction.
func New(ctx context.Context, agentID, registryPath string, expiry time.Duration, requireWorkspaceCheck bool, idManager *identity.Manager, memAgent *memory.Agent, logger core.Logger) (*Guardian, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("guardian")
	}
	if expiry <= 0 {
		expiry = core.DefaultChallengeExpiry
	}

	g := &Guardian{
		agentID:      agentID,
		challenges:   make(map[string]challenge),
		expiry:       expiry,
		registryPath: registryPath,
		requireWS:    requireWorkspaceCheck,
		idManager:    idManager,
		memAgent:     memAgent,
		logger:       logger,
	}

	if idManager != nil {
		if _, _, err := idManager.CreateNewWallet(ctx, agentID); err != nil {
			return nil, fmt.Errorf("provisioning guardian identity: %w", err)
		}
	}

	return g, nil
}

// GetChallenge issues a fresh 32-byte nonce for requestingEntity, evicting
// any prior unused challenge for that entity.
func (g *Guardian) GetChallenge(requestingEntity string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating challenge nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)

	g.mu.Lock()
	g.challenges[requestingEntity] = challenge{nonce: nonce, issuedAt: time.Now()}
	g.mu.Unlock()

	return nonce, nil
}

// isChallengeValid reports whether the stored challenge for entity matches
// nonce and hasn't expired. An expired challenge is deleted as a side effect.
func (g *Guardian) isChallengeValid(entity, nonce string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.challenges[entity]
	if !ok || c.nonce != nonce {
		return false
	}
	if time.Since(c.issuedAt) >= g.expiry {
		delete(g.challenges, entity)
		return false
	}
	return true
}

func (g *Guardian) deleteChallenge(entity string) {
	g.mu.Lock()
	delete(g.challenges, entity)
	g.mu.Unlock()
}

// CheckResult records the pass/fail of one validation step.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ValidationReport is returned by ValidateNewAgent.
type ValidationReport struct {
	AgentID         string        `json:"agent_id"`
	Status          string        `json:"status"` // PASSED, FAILED, ERROR
	ChecksPerformed []CheckResult `json:"checks_performed"`
}

func (r *ValidationReport) record(name string, passed bool, detail string) {
	r.ChecksPerformed = append(r.ChecksPerformed, CheckResult{Name: name, Passed: passed, Detail: detail})
}

// ValidateNewAgent runs the four admission checks in order: identity,
// registry status, challenge-response, workspace. Signature and nonce are
// supplied by the requesting agent as proof it holds the matching private
// key; an empty signature fails the challenge-response step outright.
func (g *Guardian) ValidateNewAgent(ctx context.Context, agentID, publicAddress, workspacePath, nonce, signature string) (bool, *ValidationReport) {
	report := &ValidationReport{AgentID: agentID}

	identityOK := g.checkIdentity(ctx, agentID, publicAddress, report)
	registryOK := g.checkRegistry(agentID, publicAddress, report)
	challengeOK := g.checkChallengeResponse(agentID, publicAddress, nonce, signature, report)
	workspaceOK := g.checkWorkspace(workspacePath, report)

	passed := identityOK && registryOK && challengeOK && workspaceOK
	if passed {
		report.Status = "PASSED"
	} else {
		report.Status = "FAILED"
	}

	g.trace(ctx, "guardian_validation", map[string]interface{}{
		"agent_id": agentID, "status": report.Status,
	})

	return passed, report
}

func (g *Guardian) checkIdentity(ctx context.Context, agentID, publicAddress string, report *ValidationReport) bool {
	if g.idManager == nil {
		report.record("identity", false, "id manager unavailable")
		return false
	}
	addr, err := g.idManager.GetPublicAddress(ctx, agentID)
	if err != nil {
		report.record("identity", false, err.Error())
		return false
	}
	ok := addr == publicAddress
	detail := ""
	if !ok {
		detail = "address mismatch"
	}
	report.record("identity", ok, detail)
	return ok
}

type registryFile struct {
	RegisteredAgents map[string]registryEntry `json:"registered_agents"`
}

type registryEntry struct {
	Enabled  bool `json:"enabled"`
	Identity struct {
		PublicKey string `json:"public_key"`
	} `json:"identity"`
}

func (g *Guardian) checkRegistry(agentID, publicAddress string, report *ValidationReport) bool {
	data, err := os.ReadFile(g.registryPath)
	if err != nil {
		report.record("registry", false, "registry unavailable")
		return false
	}

	var reg registryFile
	if err := json.Unmarshal(data, &reg); err != nil {
		report.record("registry", false, "registry unreadable")
		return false
	}

	entry, ok := reg.RegisteredAgents[agentID]
	if !ok {
		report.record("registry", false, "agent not present in registry")
		return false
	}
	if !entry.Enabled {
		report.record("registry", false, "agent disabled")
		return false
	}
	if entry.Identity.PublicKey == "" {
		report.record("registry", false, "no public key on file")
		return false
	}

	report.record("registry", true, "")
	return true
}

func (g *Guardian) checkChallengeResponse(agentID, publicAddress, nonce, signature string, report *ValidationReport) bool {
	if nonce == "" || signature == "" {
		report.record("challenge_response", false, "no challenge response supplied")
		return false
	}
	if !g.isChallengeValid(agentID, nonce) {
		report.record("challenge_response", false, "challenge invalid or expired")
		return false
	}
	defer g.deleteChallenge(agentID)

	if g.idManager == nil || !g.idManager.VerifySignature(publicAddress, nonce, signature) {
		report.record("challenge_response", false, "signature verification failed")
		return false
	}

	report.record("challenge_response", true, "")
	return true
}

func (g *Guardian) checkWorkspace(workspacePath string, report *ValidationReport) bool {
	if !g.requireWS {
		report.record("workspace", true, "check skipped")
		return true
	}
	info, err := os.Stat(workspacePath)
	if err != nil || !info.IsDir() {
		report.record("workspace", false, "workspace path invalid")
		return false
	}
	report.record("workspace", true, "")
	return true
}

// ApproveAgentForProduction signs "APPROVED:<agent_id>:<unix_ts>" with the
// Guardian's own identity, producing the deployment approval signature.
func (g *Guardian) ApproveAgentForProduction(ctx context.Context, agentID string, report *ValidationReport) (string, error) {
	if report == nil || report.Status != "PASSED" {
		return "", core.ErrValidationFailed
	}
	if g.idManager == nil {
		return "", core.ErrWalletNotFound
	}

	message := fmt.Sprintf("APPROVED:%s:%d", agentID, time.Now().Unix())
	sig, err := g.idManager.SignMessage(ctx, g.agentID, message)
	if err != nil {
		return "", fmt.Errorf("signing approval: %w", err)
	}

	g.trace(ctx, "guardian_approval_signed", map[string]interface{}{
		"agent_id": agentID, "message": message,
	})

	return sig, nil
}

// GetPrivateKey is the single sanctioned path for private-key egress: it
// validates the challenge and the signature over it before releasing the
// key, and the challenge is deleted regardless of outcome.
func (g *Guardian) GetPrivateKey(ctx context.Context, requestingEntity, nonce, signature string) (string, error) {
	if !g.isChallengeValid(requestingEntity, nonce) {
		g.trace(ctx, "guardian_key_release_denied", map[string]interface{}{
			"entity": requestingEntity, "reason": "challenge_expired_or_absent",
		})
		g.deleteChallenge(requestingEntity)
		return "", core.ErrChallengeExpired
	}
	defer g.deleteChallenge(requestingEntity)

	if g.idManager == nil {
		return "", core.ErrWalletNotFound
	}

	address, err := g.idManager.GetPublicAddress(ctx, requestingEntity)
	if err != nil {
		g.trace(ctx, "guardian_key_release_denied", map[string]interface{}{
			"entity": requestingEntity, "reason": "no_known_address",
		})
		return "", err
	}

	if !g.idManager.VerifySignature(address, nonce, signature) {
		g.trace(ctx, "guardian_key_release_denied", map[string]interface{}{
			"entity": requestingEntity, "reason": "invalid_signature",
		})
		return "", core.ErrInvalidSignature
	}

	key, err := g.idManager.GetPrivateKeyForGuardian(requestingEntity)
	if err != nil {
		return "", err
	}

	g.trace(ctx, "guardian_key_released", map[string]interface{}{"entity": requestingEntity})
	return key, nil
}

func (g *Guardian) trace(ctx context.Context, process string, data map[string]interface{}) {
	if g.memAgent == nil {
		return
	}
	_ = g.memAgent.LogProcess(ctx, g.agentID, process, data, map[string]interface{}{"agent_id": g.agentID})
}
