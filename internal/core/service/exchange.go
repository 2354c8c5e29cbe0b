package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/storage"
)

// RedeemMode selects how token redemption guards against concurrent use.
type RedeemMode string

const (
	// RedeemRace marks the token used with a plain put. Two concurrent
	// redemptions of the same token may both succeed.
	RedeemRace RedeemMode = "race"

	// RedeemStrict marks the token used with a conditional swap so that
	// exactly one concurrent redemption wins.
	RedeemStrict RedeemMode = "strict"
)

// maxSwapAttempts bounds retries when a strict swap loses to a concurrent
// write that did not redeem the token.
const maxSwapAttempts = 3

// ErrRedeemContention is returned in strict mode when every swap attempt
// lost to a concurrent write and the token is still redeemable.
var ErrRedeemContention = errors.New("token changed concurrently")

// ExchangeService trades an invitation token for a user session.
type ExchangeService struct {
	tokens   storage.Store
	swapper  storage.Swapper
	sessions *Realm[*domain.Session]
	resolver *ExpiryResolver
	mode     RedeemMode
}

// NewExchangeService creates a new ExchangeService. Strict mode requires
// the token store to implement storage.Swapper.
func NewExchangeService(tokens storage.Store, sessions *Realm[*domain.Session], resolver *ExpiryResolver, mode RedeemMode) (*ExchangeService, error) {
	s := &ExchangeService{
		tokens:   tokens,
		sessions: sessions,
		resolver: resolver,
		mode:     mode,
	}
	switch mode {
	case "", RedeemRace:
		s.mode = RedeemRace
	case RedeemStrict:
		sw, ok := tokens.(storage.Swapper)
		if !ok {
			return nil, fmt.Errorf("redeem mode %q: token store does not support conditional updates", mode)
		}
		s.swapper = sw
	default:
		return nil, fmt.Errorf("unknown redeem mode %q", mode)
	}
	return s, nil
}

// Mode returns the active redeem mode.
func (s *ExchangeService) Mode() RedeemMode {
	return s.mode
}

// RedeemResponse is the result of a successful redemption.
type RedeemResponse struct {
	SessionID string
	Session   *domain.Session
}

// Redeem validates token, marks it used, and creates a session whose
// expiry, if any, starts now.
func (s *ExchangeService) Redeem(ctx context.Context, token string) (*RedeemResponse, error) {
	if token == "" {
		return nil, domain.ErrTokenRequired
	}

	var (
		t   *domain.Token
		err error
	)
	if s.mode == RedeemStrict {
		t, err = s.claimStrict(ctx, token)
	} else {
		t, err = s.claimRace(ctx, token)
	}
	if err != nil {
		return nil, err
	}

	sess := domain.NewSession(token, s.sessions.Now(), t.ExpiresIn())
	sid, err := s.sessions.Create(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Link(ctx, token, sid); err != nil {
		return nil, err
	}

	return &RedeemResponse{SessionID: sid, Session: sess}, nil
}

func (s *ExchangeService) claimRace(ctx context.Context, token string) (*domain.Token, error) {
	_, t, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	t.SetUsed(true)
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}
	if err := s.tokens.Put(ctx, token, data, 0); err != nil {
		return nil, fmt.Errorf("put token: %w", err)
	}
	return t, nil
}

func (s *ExchangeService) claimStrict(ctx context.Context, token string) (*domain.Token, error) {
	for range maxSwapAttempts {
		raw, t, err := s.load(ctx, token)
		if err != nil {
			return nil, err
		}
		t.SetUsed(true)
		data, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("encode token: %w", err)
		}
		swapped, err := s.swapper.Swap(ctx, token, raw, data, 0)
		if err != nil {
			return nil, fmt.Errorf("swap token: %w", err)
		}
		if swapped {
			return t, nil
		}
	}
	if _, _, err := s.load(ctx, token); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrRedeemContention, maxSwapAttempts)
}

// load reads and checks a token. Missing, malformed and inactive tokens
// are all invalid.
func (s *ExchangeService) load(ctx context.Context, token string) ([]byte, *domain.Token, error) {
	raw, err := s.tokens.Get(ctx, token)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get token: %w", err)
	}
	t, err := domain.DecodeToken(raw)
	if err != nil {
		return nil, nil, domain.ErrInvalidToken.WithCause(err)
	}
	if !t.IsActive() {
		return nil, nil, domain.ErrInvalidToken
	}
	if t.IsUsed() {
		return nil, nil, domain.ErrTokenUsed
	}
	return raw, t, nil
}
