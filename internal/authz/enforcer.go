// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package authz

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

//go:embed model.conf
var embeddedModel string

// Action names accepted by Enforce (spec §4.7: "action = own/control").
const (
	ActionOwn     = "own"
	ActionControl = "control"
)

// Enforcer wraps a Casbin SyncedEnforcer scoped to display ownership.
type Enforcer struct {
	cb *casbin.SyncedEnforcer
}

// NewEnforcer loads the embedded ACL model and a file-backed policy
// store at policyPath, creating an empty one on first run so a fresh
// deployment starts with no owners rather than failing to load.
func NewEnforcer(policyPath string) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}

	if dir := filepath.Dir(policyPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create authz policy directory: %w", err)
		}
	}
	if _, err := os.Stat(policyPath); os.IsNotExist(err) {
		if err := os.WriteFile(policyPath, nil, 0o600); err != nil {
			return nil, fmt.Errorf("seed empty authz policy file: %w", err)
		}
	}

	adapter := fileadapter.NewAdapter(policyPath)
	e, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("create authz enforcer: %w", err)
	}
	return &Enforcer{cb: e}, nil
}

// Enforce reports whether adminID may perform action on displayCode.
func (e *Enforcer) Enforce(adminID, displayCode, action string) (bool, error) {
	allowed, err := e.cb.Enforce(adminID, displayCode, action)
	if err != nil {
		return false, fmt.Errorf("authz enforce: %w", err)
	}
	return allowed, nil
}

// GrantOwnership gives adminID both own and control over displayCode,
// persisting the grant so it survives a restart (spec §3: Display
// "created by an admin who supplies a code").
func (e *Enforcer) GrantOwnership(adminID, displayCode string) error {
	if _, err := e.cb.AddPolicy(adminID, displayCode, ActionOwn); err != nil {
		return fmt.Errorf("grant own: %w", err)
	}
	if _, err := e.cb.AddPolicy(adminID, displayCode, ActionControl); err != nil {
		return fmt.Errorf("grant control: %w", err)
	}
	return e.cb.SavePolicy()
}

// RevokeDisplay removes every ownership grant for displayCode, used
// when a Display is hard-deleted.
func (e *Enforcer) RevokeDisplay(displayCode string) error {
	if _, err := e.cb.RemoveFilteredPolicy(1, displayCode); err != nil {
		return fmt.Errorf("revoke display: %w", err)
	}
	return e.cb.SavePolicy()
}

// OwnersOf returns every admin id holding "own" on displayCode.
func (e *Enforcer) OwnersOf(displayCode string) ([]string, error) {
	rules, err := e.cb.GetFilteredPolicy(1, displayCode, ActionOwn)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	owners := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) > 0 {
			owners = append(owners, rule[0])
		}
	}
	return owners, nil
}
