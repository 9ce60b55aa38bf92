package user

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go-gin-marketplace/internal/domain"
)

type Mode int

const (
	ModeSignIn Mode = iota
	ModeSignUp
)

func ParseMode(s string) Mode {
	if s == "signup" {
		return ModeSignUp
	}
	return ModeSignIn
}

// Toggle 登录/注册互切
func (m Mode) Toggle() Mode {
	if m == ModeSignUp {
		return ModeSignIn
	}
	return ModeSignUp
}

func (m Mode) String() string {
	if m == ModeSignUp {
		return "signup"
	}
	return "signin"
}

type OutcomeKind int

const (
	OutcomeConfirmEmail OutcomeKind = iota + 1
	OutcomeNavigate
)

const (
	ConfirmEmailMessage = "Check your email for the confirmation link!"
	SettingsPath        = "/settings"
)

type Outcome struct {
	Kind        OutcomeKind
	Message     string
	Destination string
	User        *domain.User // 仅登录成功时非空
}

var ErrSubmitPending = errors.New("credential submission already in progress")

type Authenticator interface {
	SignUp(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string) (*domain.User, error)
}

// Form 凭证提交：idle -> pending -> idle；pending 期间拒绝重复提交。
// 模式由每次提交携带，切换模式不受 pending 影响
type Form struct {
	auth    Authenticator
	pending atomic.Bool
}

func NewForm(a Authenticator) *Form { return &Form{auth: a} }

func (f *Form) Pending() bool { return f.pending.Load() }

func (f *Form) Submit(ctx context.Context, mode Mode, email, password string) (Outcome, error) {
	if !f.pending.CompareAndSwap(false, true) {
		return Outcome{}, ErrSubmitPending
	}
	defer f.pending.Store(false)

	if mode == ModeSignUp {
		if err := f.auth.SignUp(ctx, email, password); err != nil {
			return Outcome{}, asAuthError(err)
		}
		return Outcome{Kind: OutcomeConfirmEmail, Message: ConfirmEmailMessage}, nil
	}
	u, err := f.auth.SignIn(ctx, email, password)
	if err != nil {
		return Outcome{}, asAuthError(err)
	}
	return Outcome{Kind: OutcomeNavigate, Destination: SettingsPath, User: u}, nil
}

func asAuthError(err error) error {
	var ae *AuthError
	if errors.As(err, &ae) {
		return err
	}
	return fail(KindUnavailable, err)
}

// Guards 按邮箱共享 Form，使跨请求的重复提交同样被 pending 拦住
type Guards struct {
	auth  Authenticator
	mu    sync.Mutex
	forms map[string]*guarded
}

type guarded struct {
	form *Form
	refs int
}

func NewGuards(a Authenticator) *Guards {
	return &Guards{auth: a, forms: map[string]*guarded{}}
}

func (g *Guards) Submit(ctx context.Context, mode Mode, email, password string) (Outcome, error) {
	key := NormalizeEmail(email)
	g.mu.Lock()
	e, ok := g.forms[key]
	if !ok {
		e = &guarded{form: NewForm(g.auth)}
		g.forms[key] = e
	}
	e.refs++
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(g.forms, key)
		}
		g.mu.Unlock()
	}()
	return e.form.Submit(ctx, mode, email, password)
}

// Inflight 当前持有的表单数（测试/监控用）
func (g *Guards) Inflight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.forms)
}
