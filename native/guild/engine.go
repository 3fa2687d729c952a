package guild

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"questchain/core/events"
	"questchain/core/types"
	"questchain/native/common"
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type tokenBank interface {
	Contract() [20]byte
	Balance(token, holder [20]byte) (*big.Int, error)
	Transfer(token, from, to [20]byte, amount *big.Int) error
}

var (
	configKey             = []byte("guild/config")
	membersKey            = []byte("guild/members")
	proposalCounterKey    = []byte("guild/proposal-counter")
	competitionCounterKey = []byte("guild/competition-counter")
)

func memberKey(addr [20]byte) []byte {
	return []byte("guild/member/" + common.AddrHex(addr))
}

func resourceKey(symbol string) []byte    { return []byte("guild/resource/" + symbol) }
func achievementKey(symbol string) []byte { return []byte("guild/achievement/" + symbol) }
func proposalKey(id uint64) []byte        { return []byte(fmt.Sprintf("guild/proposal/%d", id)) }
func competitionKey(id uint64) []byte     { return []byte(fmt.Sprintf("guild/competition/%d", id)) }

func voteKey(id uint64, member [20]byte) []byte {
	return []byte(fmt.Sprintf("guild/vote/%d/%s", id, common.AddrHex(member)))
}

// Engine runs a single guild: roles, a pooled token treasury, proposals and
// competition records.
type Engine struct {
	state   engineState
	bank    tokenBank
	emitter events.Emitter
	auth    common.Authorizer
	nowFn   func() int64
}

// NewEngine creates a guild engine with default collaborators.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank configures the token capability backing the treasury.
func (e *Engine) SetBank(bank tokenBank) { e.bank = bank }

// SetAuthorizer configures the invocation authorization oracle.
func (e *Engine) SetAuthorizer(auth common.Authorizer) { e.auth = auth }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) now() uint64 {
	ts := time.Now().Unix()
	if e != nil && e.nowFn != nil {
		ts = e.nowFn()
	}
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// Initialize founds the guild with leader as its first member.
func (e *Engine) Initialize(leader [20]byte, name string, token [20]byte) error {
	if err := common.RequireAuth(e.auth, leader); err != nil {
		return ErrUnauthorized
	}
	ok, err := e.state.KVGet(configKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if err := e.state.KVPut(configKey, &Config{Name: name, Token: token}); err != nil {
		return err
	}
	return e.setRole(leader, RoleLeader)
}

// Config returns the guild record.
func (e *Engine) Config() (*Config, error) {
	cfg := new(Config)
	ok, err := e.state.KVGet(configKey, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

// active loads the config, checks caller's authorization and fails once
// the guild is disbanded.
func (e *Engine) active(caller [20]byte) (*Config, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if err := common.RequireAuth(e.auth, caller); err != nil {
		return nil, ErrUnauthorized
	}
	if cfg.Disbanded {
		return nil, ErrDisbanded
	}
	return cfg, nil
}

func (e *Engine) requireRole(caller [20]byte, min Role) error {
	role, ok, err := e.Role(caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	if !role.AtLeast(min) {
		if min == RoleLeader {
			return ErrLeaderOnly
		}
		return ErrOfficerOnly
	}
	return nil
}

func (e *Engine) activeWithRole(caller [20]byte, min Role) (*Config, error) {
	cfg, err := e.active(caller)
	if err != nil {
		return nil, err
	}
	if err := e.requireRole(caller, min); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (e *Engine) setRole(member [20]byte, role Role) error {
	if err := e.state.KVPut(memberKey(member), role); err != nil {
		return err
	}
	members, err := e.Members()
	if err != nil {
		return err
	}
	if common.IndexOf(members, func(m [20]byte) bool { return m == member }) >= 0 {
		return nil
	}
	return e.state.KVPut(membersKey, append(members, member))
}

// Join adds user as a member.
func (e *Engine) Join(user [20]byte) error {
	if _, err := e.active(user); err != nil {
		return err
	}
	if _, ok, err := e.Role(user); err != nil {
		return err
	} else if ok {
		return ErrAlreadyMember
	}
	if err := e.setRole(user, RoleMember); err != nil {
		return err
	}
	e.emit(memberEvent(EventTypeJoined, user, RoleMember))
	return nil
}

// SetRole assigns role to target, enrolling target if needed.
func (e *Engine) SetRole(leader, target [20]byte, role Role) error {
	if _, err := e.activeWithRole(leader, RoleLeader); err != nil {
		return err
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	if leader == target {
		return ErrSelfRoleChange
	}
	if err := e.setRole(target, role); err != nil {
		return err
	}
	e.emit(memberEvent(EventTypeRoleChanged, target, role))
	return nil
}

func (e *Engine) requireBank() error {
	if e.bank == nil {
		return ErrBankNotConfigured
	}
	return nil
}

// Deposit moves amount of the treasury token from member into the guild.
func (e *Engine) Deposit(member [20]byte, amount *big.Int) error {
	cfg, err := e.active(member)
	if err != nil {
		return err
	}
	if !common.IsPositive(amount) {
		return ErrInvalidAmount
	}
	if err := e.requireBank(); err != nil {
		return err
	}
	if err := e.bank.Transfer(cfg.Token, member, e.bank.Contract(), amount); err != nil {
		return err
	}
	e.emit(treasuryEvent(EventTypeDeposited, member, amount))
	return nil
}

// Withdraw pays amount from the treasury to officer.
func (e *Engine) Withdraw(officer [20]byte, amount *big.Int) error {
	cfg, err := e.activeWithRole(officer, RoleOfficer)
	if err != nil {
		return err
	}
	if !common.IsPositive(amount) {
		return ErrInvalidAmount
	}
	treasury, err := e.Treasury()
	if err != nil {
		return err
	}
	if treasury.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if err := e.bank.Transfer(cfg.Token, e.bank.Contract(), officer, amount); err != nil {
		return err
	}
	e.emit(treasuryEvent(EventTypeWithdrawn, officer, amount))
	return nil
}

// Treasury returns the guild's token balance.
func (e *Engine) Treasury() (*big.Int, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if err := e.requireBank(); err != nil {
		return nil, err
	}
	return e.bank.Balance(cfg.Token, e.bank.Contract())
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", ErrInvalidSymbol
	}
	return symbol, nil
}

// AddResource increases the guild's tally of a named resource.
func (e *Engine) AddResource(officer [20]byte, symbol string, amount *big.Int) error {
	if _, err := e.activeWithRole(officer, RoleOfficer); err != nil {
		return err
	}
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return err
	}
	if !common.IsPositive(amount) {
		return ErrInvalidAmount
	}
	current, err := e.Resource(symbol)
	if err != nil {
		return err
	}
	return e.state.KVPut(resourceKey(symbol), current.Add(current, amount))
}

// Resource returns the tally of a named resource.
func (e *Engine) Resource(symbol string) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := e.state.KVGet(resourceKey(symbol), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// AddAchievement counts one more unlock of a named guild achievement.
func (e *Engine) AddAchievement(leader [20]byte, symbol string) error {
	if _, err := e.activeWithRole(leader, RoleLeader); err != nil {
		return err
	}
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return err
	}
	count, err := e.Achievement(symbol)
	if err != nil {
		return err
	}
	return e.state.KVPut(achievementKey(symbol), count+1)
}

// Achievement returns how often a guild achievement was unlocked.
func (e *Engine) Achievement(symbol string) (uint64, error) {
	var count uint64
	if _, err := e.state.KVGet(achievementKey(symbol), &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Engine) nextID(key []byte) (uint64, error) {
	var id uint64
	if _, err := e.state.KVGet(key, &id); err != nil {
		return 0, err
	}
	id++
	return id, e.state.KVPut(key, id)
}

// CreateProposal opens a vote that closes after deadline.
func (e *Engine) CreateProposal(officer [20]byte, deadline uint64) (uint64, error) {
	if _, err := e.activeWithRole(officer, RoleOfficer); err != nil {
		return 0, err
	}
	if deadline <= e.now() {
		return 0, ErrInvalidDeadline
	}
	id, err := e.nextID(proposalCounterKey)
	if err != nil {
		return 0, err
	}
	p := &Proposal{ID: id, Creator: officer, Deadline: deadline}
	if err := e.state.KVPut(proposalKey(id), p); err != nil {
		return 0, err
	}
	e.emit(proposalEvent(EventTypeProposalCreated, p))
	return id, nil
}

// Proposal returns a proposal by id.
func (e *Engine) Proposal(id uint64) (*Proposal, error) {
	p := new(Proposal)
	ok, err := e.state.KVGet(proposalKey(id), p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProposalNotFound
	}
	return p, nil
}

// Vote casts member's single vote on proposal id.
func (e *Engine) Vote(member [20]byte, id uint64, approve bool) error {
	if _, err := e.activeWithRole(member, RoleMember); err != nil {
		return err
	}
	p, err := e.Proposal(id)
	if err != nil {
		return err
	}
	if p.Executed || e.now() > p.Deadline {
		return ErrVotingClosed
	}
	if voted, err := e.state.KVGet(voteKey(id, member), nil); err != nil {
		return err
	} else if voted {
		return ErrAlreadyVoted
	}
	if approve {
		p.Yes++
	} else {
		p.No++
	}
	if err := e.state.KVPut(voteKey(id, member), approve); err != nil {
		return err
	}
	if err := e.state.KVPut(proposalKey(id), p); err != nil {
		return err
	}
	e.emit(proposalEvent(EventTypeVoted, p))
	return nil
}

// ExecuteProposal closes a proposal after its deadline and records whether
// it passed. An executed proposal is immutable.
func (e *Engine) ExecuteProposal(officer [20]byte, id uint64) (bool, error) {
	if _, err := e.activeWithRole(officer, RoleOfficer); err != nil {
		return false, err
	}
	p, err := e.Proposal(id)
	if err != nil {
		return false, err
	}
	if p.Executed {
		return false, ErrAlreadyExecuted
	}
	if e.now() <= p.Deadline {
		return false, ErrVotingOpen
	}
	p.Executed = true
	p.Passed = p.Yes > p.No
	if err := e.state.KVPut(proposalKey(id), p); err != nil {
		return false, err
	}
	e.emit(proposalEvent(EventTypeProposalExecuted, p))
	return p.Passed, nil
}

// RecordCompetition logs a match result.
func (e *Engine) RecordCompetition(leader, opponent [20]byte, reward *big.Int, won bool) (uint64, error) {
	if _, err := e.activeWithRole(leader, RoleLeader); err != nil {
		return 0, err
	}
	if reward == nil || reward.Sign() < 0 {
		return 0, ErrInvalidAmount
	}
	id, err := e.nextID(competitionCounterKey)
	if err != nil {
		return 0, err
	}
	c := &Competition{ID: id, Opponent: opponent, Reward: new(big.Int).Set(reward), Won: won, RecordedAt: e.now()}
	if err := e.state.KVPut(competitionKey(id), c); err != nil {
		return 0, err
	}
	e.emit(competitionEvent(c))
	return id, nil
}

// Competitions returns every recorded match in order.
func (e *Engine) Competitions() ([]*Competition, error) {
	var count uint64
	if _, err := e.state.KVGet(competitionCounterKey, &count); err != nil {
		return nil, err
	}
	out := make([]*Competition, 0, count)
	for id := uint64(1); id <= count; id++ {
		c := new(Competition)
		if _, err := e.state.KVGet(competitionKey(id), c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Disband splits the treasury evenly across members and closes the guild.
// The division remainder stays in the contract.
func (e *Engine) Disband(leader [20]byte) error {
	cfg, err := e.activeWithRole(leader, RoleLeader)
	if err != nil {
		return err
	}
	members, err := e.Members()
	if err != nil {
		return err
	}
	treasury, err := e.Treasury()
	if err != nil {
		return err
	}
	share := new(big.Int).Quo(treasury, big.NewInt(int64(len(members))))
	if share.Sign() > 0 {
		for _, member := range members {
			if err := e.bank.Transfer(cfg.Token, e.bank.Contract(), member, share); err != nil {
				return err
			}
		}
	}
	cfg.Disbanded = true
	if err := e.state.KVPut(configKey, cfg); err != nil {
		return err
	}
	e.emit(disbandedEvent(len(members), share))
	return nil
}

// Role returns member's role and whether they belong to the guild.
func (e *Engine) Role(member [20]byte) (Role, bool, error) {
	var role Role
	ok, err := e.state.KVGet(memberKey(member), &role)
	return role, ok, err
}

// Members returns every member in join order.
func (e *Engine) Members() ([][20]byte, error) {
	members := [][20]byte{}
	if _, err := e.state.KVGet(membersKey, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// Info summarizes the guild.
func (e *Engine) Info() (*Info, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	members, err := e.Members()
	if err != nil {
		return nil, err
	}
	treasury := big.NewInt(0)
	if e.bank != nil {
		if treasury, err = e.bank.Balance(cfg.Token, e.bank.Contract()); err != nil {
			return nil, err
		}
	}
	return &Info{Name: cfg.Name, Token: cfg.Token, Disbanded: cfg.Disbanded, Members: len(members), Treasury: treasury}, nil
}
