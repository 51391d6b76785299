package auth

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// FirebaseProvider signs in with email and password through the Identity
// Toolkit API. When an admin client is configured the returned ID token is
// verified before the user is accepted.
type FirebaseProvider struct {
	toolkit  *identitytoolkit.Service
	verifier *fbauth.Client
}

var _ Provider = (*FirebaseProvider)(nil)

// NewFirebaseProvider needs the project's web API key. projectID and
// credentialsFile enable ID token verification and may be empty.
func NewFirebaseProvider(ctx context.Context, apiKey, projectID, credentialsFile string) (*FirebaseProvider, error) {
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("identity toolkit client: %w", err)
	}
	p := &FirebaseProvider{toolkit: toolkit}
	if projectID == "" {
		return p, nil
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	p.verifier, err = app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return p, nil
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (User, error) {
	resp, err := p.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return User{}, classify(err)
	}
	return p.accept(ctx, User{UID: resp.LocalId, Email: resp.Email, IDToken: resp.IdToken})
}

func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (User, error) {
	resp, err := p.toolkit.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return User{}, classify(err)
	}
	return p.accept(ctx, User{UID: resp.LocalId, Email: resp.Email, IDToken: resp.IdToken})
}

func (p *FirebaseProvider) accept(ctx context.Context, u User) (User, error) {
	if p.verifier == nil || u.IDToken == "" {
		return u, nil
	}
	token, err := p.verifier.VerifyIDToken(ctx, u.IDToken)
	if err != nil {
		return User{}, fmt.Errorf("verify id token: %w", err)
	}
	u.UID = token.UID
	return u, nil
}

// classify maps client errors (wrong password, unknown or existing email) to
// ErrInvalidCredentials.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 {
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
	}
	return fmt.Errorf("identity toolkit: %w", err)
}
