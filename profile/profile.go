// Package profile reads and edits the signed-in user's profile and keeps the
// session's cached user in step with the server.
package profile

import (
	"context"

	"github.com/jrsteele09/resume-client/users"
	"github.com/pkg/errors"
)

const Path = "/profile"

// Doer is the part of *api.Client the service calls.
type Doer interface {
	Get(ctx context.Context, path string, out any) error
	Put(ctx context.Context, path string, in, out any) error
}

// UserCache receives the user record after every successful call.
// *session.Manager implements it.
type UserCache interface {
	UpdateUser(u users.User)
}

type Service struct {
	api   Doer
	cache UserCache
}

func NewService(client Doer, cache UserCache) *Service {
	return &Service{api: client, cache: cache}
}

func (s *Service) Get(ctx context.Context) (*users.User, error) {
	var u users.User
	if err := s.api.Get(ctx, Path, &u); err != nil {
		return nil, errors.Wrap(err, "[Service.Get] get profile")
	}
	s.cache.UpdateUser(u)
	return &u, nil
}

// Update sends the non-nil fields of upd and returns the updated user.
func (s *Service) Update(ctx context.Context, upd users.ProfileUpdate) (*users.User, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	var u users.User
	if err := s.api.Put(ctx, Path, upd, &u); err != nil {
		return nil, errors.Wrap(err, "[Service.Update] put profile")
	}
	s.cache.UpdateUser(u)
	return &u, nil
}
