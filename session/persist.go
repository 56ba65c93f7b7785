package session

import (
	"encoding/json"

	"github.com/jrsteele09/resume-client/store"
	"github.com/jrsteele09/resume-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const recordVersion = 0

// record is the persisted subset of a Session, stored under store.KeySession
// as {"state":{...},"version":0}. IsLoading is never persisted.
type record struct {
	State struct {
		User            *users.User `json:"user"`
		AccessToken     string      `json:"accessToken,omitempty"`
		RefreshToken    string      `json:"refreshToken,omitempty"`
		IsAuthenticated bool        `json:"isAuthenticated"`
	} `json:"state"`
	Version int `json:"version"`
}

func (m *Manager) persist(s Session) {
	var rec record
	rec.State.User = s.User
	rec.State.AccessToken = s.AccessToken
	rec.State.RefreshToken = s.RefreshToken
	rec.State.IsAuthenticated = s.IsAuthenticated
	rec.Version = recordVersion

	data, err := json.Marshal(rec)
	if err != nil {
		log.Err(err).Msg("failed to encode session record")
		return
	}
	if err := m.store.Set(store.KeySession, string(data)); err != nil {
		log.Err(err).Msg("failed to persist session record")
	}
}

// restore rehydrates the persisted subset. The raw token keys win over the
// record since the transport writes them directly on refresh.
func restore(st store.Store) (Session, error) {
	var s Session

	raw, err := st.Get(store.KeySession)
	if err == nil && raw != "" {
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return Session{}, errors.Wrap(err, "[session.restore] decode record")
		}
		s.User = rec.State.User
		s.AccessToken = rec.State.AccessToken
		s.RefreshToken = rec.State.RefreshToken
		s.IsAuthenticated = rec.State.IsAuthenticated
	}

	if v, err := st.Get(store.KeyAccessToken); err == nil {
		s.AccessToken = v
	} else {
		s.AccessToken = ""
	}
	if v, err := st.Get(store.KeyRefreshToken); err == nil {
		s.RefreshToken = v
	} else {
		s.RefreshToken = ""
	}

	if s.IsAuthenticated && (s.AccessToken == "" || s.RefreshToken == "" || s.User == nil) {
		s.IsAuthenticated = false
	}
	return s, nil
}
