package loginflow

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/authmode"
	"github.com/spearfish/auth-gateway/directory"
	"github.com/spearfish/auth-gateway/session"
)

var _ Flow = (*MockFlow)(nil)

// MockFlow authenticates against the in-process directory. Synchronous,
// no network; local and test execution only.
type MockFlow struct {
	users  directory.Repo
	signer *TokenSigner
}

func NewMockFlow(users directory.Repo, signer *TokenSigner) *MockFlow {
	return &MockFlow{users: users, signer: signer}
}

func (f *MockFlow) Mode() authmode.Mode { return authmode.ModeMock }

// Initiate is a no-op: the mock variant has no redirect leg.
func (f *MockFlow) Initiate(context.Context) (*Redirect, error) {
	return nil, nil
}

func (f *MockFlow) Submit(_ context.Context, req SubmitRequest) (Result, error) {
	if err := ValidateCredentials(req.Credentials); err != nil {
		return Result{Err: err}, nil
	}

	user, err := f.users.GetByEmail(req.Email)
	if err != nil {
		// Same failure shape for unknown accounts and wrong passwords;
		// the directory must not reveal which.
		return Result{Err: autherr.New(autherr.CodeInvalidCredential, "unknown account")}, nil
	}
	if !directory.CheckPasswordHash(req.Password, user.PasswordHash) {
		return Result{Err: autherr.New(autherr.CodeInvalidCredential, "password mismatch")}, nil
	}
	if user.Blocked {
		return Result{Err: autherr.New(autherr.CodeAccessDenied, "account blocked")}, nil
	}

	s := session.FromMockDoc(session.MockDoc{
		ID:                user.ID,
		Email:             user.Email,
		Roles:             user.Roles,
		PrimaryTenantID:   user.PrimaryTenantID,
		TenantMemberships: user.TenantMemberships,
	})

	if f.signer != nil {
		token, signErr := f.signer.Sign(user)
		if signErr != nil {
			log.Err(signErr).Msg("mock token signing failed")
		} else {
			s.AccessToken = token
		}
	}

	return Result{OK: true, Session: &s}, nil
}

func (f *MockFlow) HandleCallback(context.Context, CallbackParams) (Result, error) {
	return Result{}, autherr.New(autherr.CodeUnexpectedError, "mock flow has no callback leg")
}
