package service

import (
	"context"
	"errors"

	"fileshare/internal/server/auth"
	"fileshare/internal/server/database"
)

// Decision is the outcome of an access check on a link.
type Decision int

const (
	Allow Decision = iota
	DenyNotFound
	RequireAuth
	RequirePassword
	DenyWrongPassword
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyNotFound:
		return "deny_not_found"
	case RequireAuth:
		return "require_auth"
	case RequirePassword:
		return "require_password"
	case DenyWrongPassword:
		return "deny_wrong_password"
	default:
		return "unknown"
	}
}

// Decide applies the access rules in order, first match wins:
//
//  1. no record: DenyNotFound
//  2. public: Allow
//  3. valid admin credentials: Allow
//  4. password protected: RequirePassword without a password, Allow when it
//     verifies, DenyWrongPassword otherwise
//  5. RequireAuth
func Decide(link *database.Link, isAdmin bool, filePassword string) Decision {
	if link == nil {
		return DenyNotFound
	}
	if link.IsPublic {
		return Allow
	}
	if isAdmin {
		return Allow
	}
	if link.HasPassword() {
		if filePassword == "" {
			return RequirePassword
		}
		if auth.VerifyPassword(filePassword, link.PasswordHash) {
			return Allow
		}
		return DenyWrongPassword
	}
	return RequireAuth
}

// AdminVerifier checks the static admin identity.
type AdminVerifier interface {
	VerifyAdmin(username, password string) bool
}

// BasicCredentials are credentials presented with a request.
type BasicCredentials struct {
	Username string
	Password string
}

// AccessRequest is one request for a link.
type AccessRequest struct {
	CustomLink   string
	Admin        *BasicCredentials // nil when none presented
	FilePassword string            // empty when none supplied
}

// AccessResult carries the decision and, unless DenyNotFound, the link.
type AccessResult struct {
	Decision Decision
	Link     *database.Link
}

// Engine resolves link requests into decisions.
type Engine struct {
	registry *Registry
	admin    AdminVerifier
}

// NewEngine creates an engine that looks links up in registry and checks
// admin credentials with admin.
func NewEngine(registry *Registry, admin AdminVerifier) *Engine {
	return &Engine{registry: registry, admin: admin}
}

// Resolve looks the link up and decides. The error is only set for
// infrastructure failures; every access outcome is a Decision.
func (e *Engine) Resolve(ctx context.Context, req AccessRequest) (AccessResult, error) {
	link, err := e.registry.Find(ctx, req.CustomLink)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AccessResult{Decision: DenyNotFound}, nil
		}
		return AccessResult{}, err
	}

	// Admin credentials are only checked when the link isn't public anyway.
	isAdmin := !link.IsPublic && e.IsAdmin(req.Admin)

	return AccessResult{
		Decision: Decide(link, isAdmin, req.FilePassword),
		Link:     link,
	}, nil
}

// IsAdmin reports whether creds are present and valid.
func (e *Engine) IsAdmin(creds *BasicCredentials) bool {
	return creds != nil && e.admin.VerifyAdmin(creds.Username, creds.Password)
}
