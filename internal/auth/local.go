package auth

import (
	"context"

	"github.com/google/uuid"
)

// LocalProvider accepts any well-formed credentials and derives a stable
// user id from the email. It backs the in-memory remote store.
type LocalProvider struct{}

var _ Provider = LocalProvider{}

func (LocalProvider) SignIn(_ context.Context, email, _ string) (User, error) {
	return User{UID: localUID(email), Email: email}, nil
}

func (LocalProvider) SignUp(ctx context.Context, email, password string) (User, error) {
	return LocalProvider{}.SignIn(ctx, email, password)
}

func localUID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String()
}
