package local

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-dashboard"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Config holds the self hosted backend settings
type Config struct {
	AppURL          string
	SigningKey      string
	TokenExpiration int
	Issuer          string
	Audience        string
}

// Provider implements dashboard.AuthProvider on top of a Bun database
type Provider struct {
	cfg       Config
	db        *bun.DB
	repo      RepositoryManager
	tokens    *TokenService
	notifier  Notifier
	logger    dashboard.Logger
	now       func() time.Time
	useHashid bool

	signUp         *SignUpHandler
	signIn         *SignInHandler
	sendLink       *SendEmailLinkHandler
	verifyLink     *VerifyEmailLinkHandler
	updatePassword *UpdatePasswordHandler
}

var _ dashboard.AuthProvider = (*Provider)(nil)

// Option configures Provider
type Option func(*Provider)

// WithLogger sets the provider logger
func WithLogger(logger dashboard.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithNotifier sets how email links are delivered, the default logs them
func WithNotifier(n Notifier) Option {
	return func(p *Provider) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithHashidIDs derives account ids from the email address
func WithHashidIDs(enabled bool) Option {
	return func(p *Provider) {
		p.useHashid = enabled
	}
}

// NewProvider returns a self hosted auth backend using db
func NewProvider(db *bun.DB, cfg Config, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(cfg.SigningKey) == "" {
		return nil, errors.New("local backend requires a signing key", errors.CategoryBadInput)
	}
	if cfg.Audience == "" {
		cfg.Audience = AuthenticatedRole
	}

	p := &Provider{
		cfg:    cfg,
		db:     db,
		repo:   NewRepositoryManager(db),
		logger: nopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = NewLoggerNotifier(p.logger)
	}

	p.repo.MustValidate()

	p.tokens = NewTokenService([]byte(cfg.SigningKey), cfg.TokenExpiration, cfg.Issuer, jwt.ClaimStrings{cfg.Audience}, p.logger)
	p.tokens.now = p.now

	p.signUp = &SignUpHandler{repo: p.repo, now: p.now}
	p.signIn = &SignInHandler{repo: p.repo, tokens: p.tokens, now: p.now}
	p.sendLink = &SendEmailLinkHandler{repo: p.repo, notifier: p.notifier, appURL: cfg.AppURL, logger: p.logger, now: p.now}
	p.verifyLink = &VerifyEmailLinkHandler{repo: p.repo, tokens: p.tokens, now: p.now}
	p.updatePassword = &UpdatePasswordHandler{repo: p.repo, now: p.now}

	return p, nil
}

// Users returns the user store backed by the same database
func (p *Provider) Users() dashboard.UserStore {
	return p.repo.Profiles()
}

// GetUser validates the access token and loads its account
func (p *Provider) GetUser(ctx context.Context, accessToken string) (*dashboard.SessionUser, error) {
	account, err := p.accountForToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return account.SessionUser(), nil
}

// SignUp registers an account and sends the confirmation link
func (p *Provider) SignUp(ctx context.Context, req dashboard.SignUpRequest) (*dashboard.SessionUser, error) {
	var account *Account
	var token *OneTimeToken

	err := p.signUp.Execute(ctx, SignUpMessage{
		Email:      req.Email,
		Password:   req.Password,
		Metadata:   req.Metadata,
		RedirectTo: req.EmailRedirectTo,
		UseHashid:  p.useHashid,
		OnResponse: func(a *Account, t *OneTimeToken) {
			account = a
			token = t
		},
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("account registered", "account_id", account.ID)

	if err := notify(ctx, p.notifier, p.cfg.AppURL, account, token); err != nil {
		p.logger.Error("sign up notification failed", "error", err)
		return nil, err
	}

	return account.SessionUser(), nil
}

// SignInWithPassword checks the credentials and issues a session
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*dashboard.AuthSession, error) {
	var session *dashboard.AuthSession
	err := p.signIn.Execute(ctx, SignInMessage{
		Email:    email,
		Password: password,
		OnResponse: func(s *dashboard.AuthSession) {
			session = s
		},
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Resend issues a new link of otpType for email
func (p *Provider) Resend(ctx context.Context, otpType dashboard.OTPType, email, redirectTo string) error {
	return p.sendLink.Execute(ctx, SendEmailLinkMessage{
		LinkType:   otpType,
		Email:      email,
		RedirectTo: redirectTo,
	})
}

// ResetPasswordForEmail sends a recovery link for email
func (p *Provider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	return p.sendLink.Execute(ctx, SendEmailLinkMessage{
		LinkType:   dashboard.OTPTypeRecovery,
		Email:      email,
		RedirectTo: redirectTo,
	})
}

// UpdateUser changes the password of the session account
func (p *Provider) UpdateUser(ctx context.Context, accessToken string, attrs dashboard.UserAttributes) (*dashboard.SessionUser, error) {
	account, err := p.accountForToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if attrs.Password != "" {
		err = p.updatePassword.Execute(ctx, UpdatePasswordMessage{
			AccountID: account.ID,
			Password:  attrs.Password,
		})
		if err != nil {
			return nil, err
		}
	}

	return account.SessionUser(), nil
}

// SignOut has nothing to revoke, sessions are stateless tokens
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if _, err := p.tokens.Validate(accessToken); err != nil {
		p.logger.Debug("sign out with invalid token", "error", err)
	}
	return nil
}

// VerifyOTP exchanges an email link token for a session
func (p *Provider) VerifyOTP(ctx context.Context, otpType dashboard.OTPType, tokenHash string) (*dashboard.AuthSession, error) {
	if strings.TrimSpace(tokenHash) == "" {
		return nil, ErrInvalidLink
	}

	var session *dashboard.AuthSession
	err := p.verifyLink.Execute(ctx, VerifyEmailLinkMessage{
		LinkType:  otpType,
		TokenHash: tokenHash,
		OnResponse: func(s *dashboard.AuthSession) {
			session = s
		},
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (p *Provider) accountForToken(ctx context.Context, accessToken string) (*Account, error) {
	if accessToken == "" {
		return nil, dashboard.ErrNoSession
	}

	claims, err := p.tokens.Validate(accessToken)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	account, err := p.repo.Accounts().GetAccountByIDTx(ctx, p.db, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, dashboard.ErrNoSession
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session account")
	}
	return account, nil
}
