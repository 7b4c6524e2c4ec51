package loginflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/directory"
	"github.com/spearfish/auth-gateway/session"
	"github.com/stretchr/testify/require"
)

func seededMockFlow(t *testing.T) *MockFlow {
	t.Helper()
	users := directory.NewInMemoryRepo()
	require.NoError(t, directory.Seed(users))
	signer := NewTokenSigner([]byte("test-secret"), "auth-gateway", time.Hour)
	return NewMockFlow(users, signer)
}

func TestMockFlowSubmitSuccess(t *testing.T) {
	flow := seededMockFlow(t)

	result, err := flow.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "user@spearfish.io", Password: "UserPass123!"},
	})
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Nil(t, result.Err)

	s := result.Session
	require.NotNil(t, s)
	require.Equal(t, "user@spearfish.io", s.Email)
	require.Equal(t, session.AuthTypeMock, s.AuthType)
	require.Equal(t, []string{"TenantUserRole"}, s.Roles)
	require.Equal(t, int64(1), s.TenantID)
	require.Equal(t, int64(1), s.PrimaryTenantID)
	require.Equal(t, []int64{1, 2}, s.TenantMemberships)
	require.NotEmpty(t, s.AccessToken)
}

func TestMockFlowSubmitWrongPassword(t *testing.T) {
	flow := seededMockFlow(t)

	result, err := flow.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "user@spearfish.io", Password: "wrong"},
	})
	require.NoError(t, err)
	require.False(t, result.OK)
	require.NotNil(t, result.Err)
	require.Equal(t, autherr.CodeInvalidCredential, result.Err.Code)
}

func TestMockFlowSubmitUnknownAccountSameShape(t *testing.T) {
	flow := seededMockFlow(t)

	unknown, err := flow.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "nobody@spearfish.io", Password: "whatever1"},
	})
	require.NoError(t, err)
	wrong, err := flow.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "user@spearfish.io", Password: "whatever1"},
	})
	require.NoError(t, err)

	// Unknown account and wrong password must be indistinguishable.
	require.Equal(t, wrong.Err.Code, unknown.Err.Code)
	require.Equal(t, wrong.Err.UserMessage, unknown.Err.UserMessage)
}

func TestMockFlowSubmitBlockedAccount(t *testing.T) {
	users := directory.NewInMemoryRepo()
	hash, err := directory.HashPassword("BlockedPass1!")
	require.NoError(t, err)
	require.NoError(t, users.Upsert(&directory.User{
		ID:           "u-blocked",
		Email:        "blocked@spearfish.io",
		PasswordHash: hash,
		Blocked:      true,
	}))
	flow := NewMockFlow(users, nil)

	result, err := flow.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "blocked@spearfish.io", Password: "BlockedPass1!"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Err)
	require.Equal(t, autherr.CodeAccessDenied, result.Err.Code)
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		valid    bool
	}{
		{"valid", "user@spearfish.io", "pw", true},
		{"empty email", "", "pw", false},
		{"empty password", "user@spearfish.io", "", false},
		{"no at sign", "userspearfish.io", "pw", false},
		{"at first", "@spearfish.io", "pw", false},
		{"at last", "user@", "pw", false},
		{"no dot in domain", "user@localhost", "pw", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCredentials(Credentials{Email: tc.email, Password: tc.password})
			if tc.valid {
				require.Nil(t, err)
			} else {
				require.NotNil(t, err)
				require.Equal(t, autherr.CodeValidationError, err.Code)
			}
		})
	}
}

// blockingFlow parks Submit until released, so duplicate submissions can
// be raced deterministically.
type blockingFlow struct {
	MockFlow
	started chan struct{}
	release chan struct{}
}

func (f *blockingFlow) Submit(_ context.Context, _ SubmitRequest) (Result, error) {
	close(f.started)
	<-f.release
	return Result{OK: true}, nil
}

func TestEngineRejectsDuplicateSubmit(t *testing.T) {
	flow := &blockingFlow{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	engine := NewEngine(flow)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := engine.Submit(context.Background(), SubmitRequest{
			Credentials: Credentials{Email: "user@spearfish.io", Password: "pw"},
		})
		require.NoError(t, err)
	}()

	<-flow.started

	// Same identity, case-insensitive: rejected while the first runs.
	_, err := engine.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "User@Spearfish.IO", Password: "pw"},
	})
	require.ErrorIs(t, err, ErrSubmitInFlight)

	close(flow.release)
	wg.Wait()

	// Slot is released once the first submission finishes.
	flow.started = make(chan struct{})
	flow.release = make(chan struct{})
	close(flow.release)
	_, err = engine.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "user@spearfish.io", Password: "pw"},
	})
	require.NoError(t, err)
}

func TestMockFlowHandleCallbackUnsupported(t *testing.T) {
	flow := seededMockFlow(t)
	_, err := flow.HandleCallback(context.Background(), CallbackParams{})
	require.Error(t, err)
	require.Equal(t, autherr.CodeUnexpectedError, autherr.CodeOf(err))
}
