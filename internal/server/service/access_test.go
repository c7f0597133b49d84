package service

import (
	"context"
	"testing"

	"fileshare/internal/server/auth"
	"fileshare/internal/server/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)

	private := &database.Link{CustomLink: "private"}
	protected := &database.Link{CustomLink: "protected", PasswordHash: hash}
	public := &database.Link{CustomLink: "public", IsPublic: true}
	publicProtected := &database.Link{CustomLink: "pp", IsPublic: true, PasswordHash: hash}

	tests := []struct {
		name     string
		link     *database.Link
		isAdmin  bool
		password string
		want     Decision
	}{
		{"missing record", nil, true, "hunter2", DenyNotFound},

		{"private without admin", private, false, "", RequireAuth},
		{"private with admin", private, true, "", Allow},
		{"private ignores file password", private, false, "hunter2", RequireAuth},

		{"protected without password", protected, false, "", RequirePassword},
		{"protected correct password", protected, false, "hunter2", Allow},
		{"protected wrong password", protected, false, "wrong", DenyWrongPassword},
		{"protected admin no password", protected, true, "", Allow},
		{"protected admin wrong password", protected, true, "wrong", Allow},

		{"public anonymous", public, false, "", Allow},
		{"public with junk password", public, false, "junk", Allow},
		{"public protected anonymous", publicProtected, false, "", Allow},
		{"public protected wrong password", publicProtected, false, "wrong", Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.link, tt.isAdmin, tt.password))
		})
	}
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny_not_found", DenyNotFound.String())
	assert.Equal(t, "require_auth", RequireAuth.String())
	assert.Equal(t, "require_password", RequirePassword.String())
	assert.Equal(t, "deny_wrong_password", DenyWrongPassword.String())
	assert.Equal(t, "unknown", Decision(42).String())
}

func TestEngine_Resolve(t *testing.T) {
	env := newTestEnv(t)
	engine := NewEngine(env.registry, staticAdmin{"admin", "secret"})
	ctx := context.Background()

	env.upload(t, "private", "p", false, "")
	env.upload(t, "alpha", "a", false, "hunter2")
	env.upload(t, "open", "o", true, "")

	admin := &BasicCredentials{Username: "admin", Password: "secret"}
	intruder := &BasicCredentials{Username: "admin", Password: "guess"}

	tests := []struct {
		name string
		req  AccessRequest
		want Decision
	}{
		{"unknown link", AccessRequest{CustomLink: "nope", Admin: admin}, DenyNotFound},
		{"private anonymous", AccessRequest{CustomLink: "private"}, RequireAuth},
		{"private admin", AccessRequest{CustomLink: "private", Admin: admin}, Allow},
		{"private wrong credentials", AccessRequest{CustomLink: "private", Admin: intruder}, RequireAuth},
		{"alpha no password", AccessRequest{CustomLink: "alpha"}, RequirePassword},
		{"alpha correct password", AccessRequest{CustomLink: "alpha", FilePassword: "hunter2"}, Allow},
		{"alpha wrong password", AccessRequest{CustomLink: "alpha", FilePassword: "wrong"}, DenyWrongPassword},
		{"alpha admin", AccessRequest{CustomLink: "alpha", Admin: admin}, Allow},
		{"alpha wrong credentials fall through to password", AccessRequest{CustomLink: "alpha", Admin: intruder, FilePassword: "hunter2"}, Allow},
		{"open anonymous", AccessRequest{CustomLink: "open"}, Allow},
		{"open wrong credentials", AccessRequest{CustomLink: "open", Admin: intruder, FilePassword: "x"}, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Resolve(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Decision)
			if tt.want == DenyNotFound {
				assert.Nil(t, res.Link)
			} else {
				require.NotNil(t, res.Link)
				assert.Equal(t, tt.req.CustomLink, res.Link.CustomLink)
			}
		})
	}

	t.Run("toggle makes a protected link public", func(t *testing.T) {
		_, err := env.registry.ToggleVisibility(ctx, "alpha")
		require.NoError(t, err)

		res, err := engine.Resolve(ctx, AccessRequest{CustomLink: "alpha"})
		require.NoError(t, err)
		assert.Equal(t, Allow, res.Decision)
	})

	t.Run("is admin", func(t *testing.T) {
		assert.True(t, engine.IsAdmin(admin))
		assert.False(t, engine.IsAdmin(intruder))
		assert.False(t, engine.IsAdmin(nil))
	})
}
