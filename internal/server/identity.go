// Package server tracks durable user identities for the Parley room. An
// identity outlives the connection that created it so a client can resume its
// display name and color across reconnects; nothing survives process restart.
package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ErrNameTaken is returned when a requested display name is already assigned
// to another identity.
var ErrNameTaken = errors.New("display name already taken")

// maxNameDraws bounds the rejection-sampling loop when minting a display
// name; past it a numeric suffix guarantees termination.
const maxNameDraws = 100

// defaultColor is the color assigned to freshly minted identities.
const defaultColor = "000000"

// Directory owns every UserIdentity in the process, keyed by token. All
// operations are serialized by the directory's own mutex; check-then-set
// steps (unique name minting, nickname collision checks) are atomic under it.
type Directory struct {
	mu       sync.Mutex
	profiles map[string]Profile
}

// NewDirectory creates an empty identity directory.
func NewDirectory() *Directory {
	return &Directory{profiles: make(map[string]Profile)}
}

// Resume looks up an existing identity by token. It returns the profile and
// true when the token is known.
func (d *Directory) Resume(token string) (Profile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.profiles[token]
	return p, ok
}

// Mint creates a fresh identity with a new token, a display name unique among
// all registered identities, and the default color.
func (d *Directory) Mint() (string, Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()

	token := uuid.NewString()
	p := Profile{Name: d.uniqueName(), Color: defaultColor}
	d.profiles[token] = p
	return token, p
}

// uniqueName draws random candidates until one is unassigned. After
// maxNameDraws the last candidate gets the smallest free numeric suffix
// instead, so the loop always terminates. Caller holds d.mu.
func (d *Directory) uniqueName() string {
	taken := make(map[string]struct{}, len(d.profiles))
	for _, p := range d.profiles {
		taken[p.Name] = struct{}{}
	}

	var candidate string
	for i := 0; i < maxNameDraws; i++ {
		candidate = randomName()
		if _, clash := taken[candidate]; !clash {
			return candidate
		}
	}

	for n := 2; ; n++ {
		suffixed := fmt.Sprintf("%s-%d", candidate, n)
		if _, clash := taken[suffixed]; !clash {
			return suffixed
		}
	}
}

// Rename assigns a new display name to token. The uniqueness check and the
// write happen under one lock acquisition, so two racing requests for the
// same name cannot both be accepted.
func (d *Directory) Rename(token, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.profiles[token]
	if !ok {
		return fmt.Errorf("unknown identity token %q", token)
	}
	for _, other := range d.profiles {
		if other.Name == name {
			return ErrNameTaken
		}
	}

	p.Name = name
	d.profiles[token] = p
	return nil
}

// SetColor updates the color of token's identity. The value must already be
// validated and normalized by the caller.
func (d *Directory) SetColor(token, color string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.profiles[token]
	if !ok {
		return fmt.Errorf("unknown identity token %q", token)
	}
	p.Color = color
	d.profiles[token] = p
	return nil
}

// Profile returns the current profile for token.
func (d *Directory) Profile(token string) (Profile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.profiles[token]
	return p, ok
}

// Roster builds a token-to-profile snapshot for the given tokens, skipping
// any that are unknown.
func (d *Directory) Roster(tokens []string) map[string]Profile {
	d.mu.Lock()
	defer d.mu.Unlock()

	known := lo.Filter(tokens, func(t string, _ int) bool {
		_, ok := d.profiles[t]
		return ok
	})
	return lo.Associate(known, func(t string) (string, Profile) {
		return t, d.profiles[t]
	})
}

// Count returns the number of registered identities.
func (d *Directory) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.profiles)
}
